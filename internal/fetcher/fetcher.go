package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	semver "github.com/Masterminds/semver/v3"
	"github.com/inhies/go-bytesize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/schmitthub/crispy-succotash/internal/dist"
	"github.com/schmitthub/crispy-succotash/internal/versions"
)

// DefaultTempPrefix names the run directory created under the OS temp dir
// when no output directory is configured.
const DefaultTempPrefix = "crispy-succotash-"

// IndexClient is the subset of dist.Client the fetcher needs.
type IndexClient interface {
	FetchIndex(ctx context.Context) ([]dist.ReleaseInfo, error)
	FetchArtifact(ctx context.Context, version, filename string) (io.ReadCloser, error)
}

// Options configures a Fetcher.
type Options struct {
	Client IndexClient

	// OutDir is the output root. Relative paths resolve against the working
	// directory. Empty means a fresh directory under TempDir.
	OutDir string

	// TempDir is the parent for generated output roots. Default: os.TempDir().
	TempDir string

	// TempPrefix prefixes generated output roots. Default: DefaultTempPrefix.
	TempPrefix string

	// Floor is the lowest version considered. Nil means versions.DefaultFloor.
	Floor *semver.Version

	Logger *zerolog.Logger
}

// Download records one artifact written to disk.
type Download struct {
	Version string
	Path    string
	Bytes   int64
}

// Result summarizes a completed run.
type Result struct {
	OutDir    string
	Selected  []dist.ReleaseInfo
	Downloads []Download
}

// Fetcher selects the latest release of every major line and downloads its
// header artifacts.
type Fetcher struct {
	client     IndexClient
	outDir     string
	tempDir    string
	tempPrefix string
	floor      *semver.Version
	logger     zerolog.Logger
}

// New validates opts and resolves the output directory to an absolute path.
func New(opts Options) (*Fetcher, error) {
	if opts.Client == nil {
		return nil, errors.New("fetcher: client is required")
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	outDir := strings.TrimSpace(opts.OutDir)
	if outDir != "" {
		abs, err := filepath.Abs(outDir)
		if err != nil {
			return nil, fmt.Errorf("resolve output directory %q: %w", outDir, err)
		}
		outDir = abs
	}

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	tempPrefix := opts.TempPrefix
	if tempPrefix == "" {
		tempPrefix = DefaultTempPrefix
	}

	floor := opts.Floor
	if floor == nil {
		floor = semver.MustParse(versions.DefaultFloor)
	}

	return &Fetcher{
		client:     opts.Client,
		outDir:     outDir,
		tempDir:    tempDir,
		tempPrefix: tempPrefix,
		floor:      floor,
		logger:     logger,
	}, nil
}

// OutDir returns the configured output root, or "" if Run will create one.
func (f *Fetcher) OutDir() string {
	return f.outDir
}

// Artifacts lists the files fetched for a release, in download order.
func Artifacts(version string) []string {
	return []string{
		"SHASUMS256.txt",
		fmt.Sprintf("node-%s-headers.tar.gz", version),
		fmt.Sprintf("node-%s-headers.tar.xz", version),
	}
}

// Run fetches the index, selects one release per major line and downloads
// every selected release's artifacts. Releases download concurrently; the
// first failure cancels the rest and is returned.
func (f *Fetcher) Run(ctx context.Context) (Result, error) {
	outDir, err := f.prepareOutDir()
	if err != nil {
		return Result{}, err
	}
	f.logger.Info().Str("outdir", outDir).Msg("Output directory")

	releases, err := f.client.FetchIndex(ctx)
	if err != nil {
		return Result{OutDir: outDir}, err
	}

	selected := versions.SelectLatest(releases, f.floor)
	f.logger.Debug().
		Int("releases", len(releases)).
		Int("selected", len(selected)).
		Str("floor", f.floor.String()).
		Msg("Selected latest release per major version")

	result := Result{OutDir: outDir, Selected: selected}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, info := range selected {
		info := info
		g.Go(func() error {
			downloads, err := f.downloadRelease(gctx, info, outDir)

			mu.Lock()
			result.Downloads = append(result.Downloads, downloads...)
			mu.Unlock()

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (f *Fetcher) prepareOutDir() (string, error) {
	if f.outDir == "" {
		dir, err := os.MkdirTemp(f.tempDir, f.tempPrefix)
		if err != nil {
			return "", &FilesystemError{Op: "create temp directory in", Path: f.tempDir, Err: err}
		}
		return dir, nil
	}

	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return "", &FilesystemError{Op: "create output directory", Path: f.outDir, Err: err}
	}
	return f.outDir, nil
}

func (f *Fetcher) downloadRelease(ctx context.Context, info dist.ReleaseInfo, outDir string) ([]Download, error) {
	versionDir := filepath.Join(outDir, info.Version)
	if err := os.Mkdir(versionDir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, &FilesystemError{Op: "create version directory", Path: versionDir, Err: err}
	}

	logger := f.logger.With().Str("version", info.Version).Logger()

	downloads := make([]Download, 0, 3)
	for _, filename := range Artifacts(info.Version) {
		written, err := f.downloadArtifact(ctx, info.Version, versionDir, filename)
		if err != nil {
			return downloads, err
		}

		path := filepath.Join(versionDir, filename)
		logger.Debug().
			Str("file", path).
			Str("size", bytesize.New(float64(written)).String()).
			Msg("Saved artifact")
		downloads = append(downloads, Download{Version: info.Version, Path: path, Bytes: written})
	}

	return downloads, nil
}

func (f *Fetcher) downloadArtifact(ctx context.Context, version, dir, filename string) (int64, error) {
	body, err := f.client.FetchArtifact(ctx, version, filename)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	path := filepath.Join(dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return 0, &FilesystemError{Op: "create file", Path: path, Err: err}
	}

	w := &fileWriter{f: out}
	written, copyErr := io.Copy(w, body)
	closeErr := out.Close()

	switch {
	case w.err != nil:
		return written, &FilesystemError{Op: "write file", Path: path, Err: w.err}
	case copyErr != nil:
		return written, &StreamError{Version: version, Filename: filename, Written: written, Err: copyErr}
	case closeErr != nil:
		return written, &FilesystemError{Op: "close file", Path: path, Err: closeErr}
	}
	return written, nil
}

// fileWriter remembers write failures so they can be told apart from read
// failures on the response body.
type fileWriter struct {
	f   *os.File
	err error
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}
