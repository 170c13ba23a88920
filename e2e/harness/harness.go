package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/schmitthub/crispy-succotash/internal/cmd"
	"github.com/schmitthub/crispy-succotash/internal/testenv"
)

// Harness provides an isolated filesystem environment and a fake
// distribution host for end-to-end tests.
type Harness struct {
	T *testing.T
}

// RunResult holds the outcome of a CLI command execution.
type RunResult struct {
	ExitCode int
	Err      error
	Stdout   string
	Stderr   string
}

// SetupResult holds the resolved paths from NewIsolatedFS.
type SetupResult struct {
	BaseDir    string
	ProjectDir string
	CacheDir   string
	Dist       *testenv.DistServer
}

// FSOptions configures NewIsolatedFS.
type FSOptions struct {
	ProjectDir string   // subdirectory name under base (default: "testproject")
	Versions   []string // versions listed by the fake distribution host
}

// NewIsolatedFS creates an isolated test environment.
//
// Delegates directory and environment setup to testenv.New, starts a fake
// distribution host, then adds a project directory and chdirs into it
// (restored on cleanup).
func (h *Harness) NewIsolatedFS(opts *FSOptions) *SetupResult {
	h.T.Helper()

	if opts == nil {
		opts = &FSOptions{}
	}
	if opts.ProjectDir == "" {
		opts.ProjectDir = "testproject"
	}

	env := testenv.New(h.T)
	srv := testenv.NewDistServer(h.T, opts.Versions...)

	projectDir := filepath.Join(env.Dirs.Base, opts.ProjectDir)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		h.T.Fatalf("harness: creating project dir %s: %v", projectDir, err)
	}
	testenv.Chdir(h.T, projectDir)

	return &SetupResult{
		BaseDir:    env.Dirs.Base,
		ProjectDir: projectDir,
		CacheDir:   env.Dirs.Cache,
		Dist:       srv,
	}
}

// Run executes a CLI command through the full cmd.NewRootCmd Cobra pipeline.
func (h *Harness) Run(args ...string) *RunResult {
	h.T.Helper()

	rootCmd := cmd.NewRootCmd("test", "test")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return &RunResult{ExitCode: cmd.ExitCode(err), Err: err, Stdout: stdout.String(), Stderr: stderr.String()}
}
