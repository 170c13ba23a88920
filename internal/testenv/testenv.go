// Package testenv provides isolated test environments with temp directories,
// environment variable overrides and a fake distribution server.
//
// Usage:
//
//	// Isolated dirs:
//	env := testenv.New(t)
//	env.Dirs.Base  // temp root
//	env.Dirs.Out   // suggested output root (not created)
//
//	// With config:
//	env := testenv.New(t, testenv.WithConfig(yamlString))
//	env.Config     // *config.FileConfig
//	env.ConfigPath // file holding yamlString
//
//	// Fake https://nodejs.org/dist:
//	srv := testenv.NewDistServer(t, "v10.24.1", "v12.22.12")
//	srv.BaseURL()  // <server>/dist
package testenv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schmitthub/crispy-succotash/internal/config"
)

// IsolatedDirs holds the directory paths created for the test.
type IsolatedDirs struct {
	Base  string // temp root (parent of all dirs)
	Cache string // update-check cache
	Out   string // default output root, left for the code under test to create
}

// Env is a unified test environment with isolated directories and optional
// config.
type Env struct {
	Dirs       IsolatedDirs
	Config     *config.FileConfig
	ConfigPath string
}

// Option configures an Env during construction.
type Option func(t *testing.T, e *Env)

// WithConfig parses yaml into Env.Config and writes it to Env.ConfigPath.
func WithConfig(yaml string) Option {
	return func(t *testing.T, e *Env) {
		t.Helper()
		cfg, err := config.FromString(yaml)
		if err != nil {
			t.Fatalf("testenv: creating config: %v", err)
		}
		path := filepath.Join(e.Dirs.Base, "crispy-succotash.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("testenv: writing config: %v", err)
		}
		e.Config = &cfg
		e.ConfigPath = path
	}
}

// New creates an isolated test environment. It:
//  1. Creates a temp directory with a cache subdirectory
//  2. Clears CRISPY_SUCCOTASH_* variables and disables the update check
//  3. Points TMPDIR at the temp root so generated output stays inside it
//  4. Applies any options (e.g. WithConfig)
func New(t *testing.T, opts ...Option) *Env {
	t.Helper()

	// Resolve symlinks on the base temp dir so paths match os.Getwd()
	// after chdir (macOS: /var → /private/var).
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("testenv: resolving temp dir symlinks: %v", err)
	}

	dirs := IsolatedDirs{
		Base:  base,
		Cache: filepath.Join(base, "cache"),
		Out:   filepath.Join(base, "out"),
	}

	if err := os.MkdirAll(dirs.Cache, 0o755); err != nil {
		t.Fatalf("testenv: creating dir %s: %v", dirs.Cache, err)
	}

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "CRISPY_SUCCOTASH_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Setenv("CRISPY_SUCCOTASH_NO_UPDATE_CHECK", "true")
	t.Setenv("TMPDIR", base)
	t.Setenv("XDG_CACHE_HOME", dirs.Cache)

	env := &Env{Dirs: dirs}

	for _, opt := range opts {
		opt(t, env)
	}

	return env
}

// Chdir changes the working directory for the rest of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("testenv: getting cwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("testenv: chdir to %s: %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
