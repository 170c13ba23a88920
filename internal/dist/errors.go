package dist

import (
	"fmt"
	"net/http"
)

// NetworkError reports a request that failed in transport or returned a
// non-success status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) ExitCode() int { return 3 }

// ParseError reports an index body that is not the expected JSON shape.
type ParseError struct {
	URL string
	// Entry is the zero-based index entry that failed, or -1 for the
	// document as a whole.
	Entry int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("parse index %s: entry %d: %v", e.URL, e.Entry, e.Err)
	}
	return fmt.Sprintf("parse index %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ExitCode() int { return 2 }
