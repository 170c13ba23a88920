package fetcher

import "fmt"

// FilesystemError reports a directory or file that could not be created.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func (e *FilesystemError) ExitCode() int { return 5 }

// StreamError reports a download interrupted before the body was fully
// written.
type StreamError struct {
	Version  string
	Filename string
	Written  int64
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("download %s/%s interrupted after %d bytes: %v", e.Version, e.Filename, e.Written, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

func (e *StreamError) ExitCode() int { return 6 }
