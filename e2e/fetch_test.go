package test

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/schmitthub/crispy-succotash/e2e/harness"
)

var indexVersions = []string{
	"v18.20.4", "v18.19.0",
	"v16.20.2",
	"v12.22.12", "v12.0.0",
	"v10.24.1", "v10.0.0",
	"v4.9.1", "v4.0.0",
	"v0.12.18",
}

func tree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

func expectedTree(versions ...string) []string {
	var out []string
	for _, v := range versions {
		out = append(out,
			v,
			v+"/SHASUMS256.txt",
			v+"/node-"+v+"-headers.tar.gz",
			v+"/node-"+v+"-headers.tar.xz",
		)
	}
	sort.Strings(out)
	return out
}

func assertTree(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("tree mismatch:\n got: %v\nwant: %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("tree mismatch at %d:\n got: %v\nwant: %v", i, got, want)
		}
	}
}

func TestFetchRelativeOutDir(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Versions: indexVersions})

	result := h.Run("--out-dir", "headers", "--base-url", setup.Dist.BaseURL())
	if result.Err != nil {
		t.Fatalf("fetch failed: %v\n%s", result.Err, result.Stderr)
	}
	if result.Stdout != "Done.\n" {
		t.Errorf("expected Done., got %q", result.Stdout)
	}

	outDir := filepath.Join(setup.ProjectDir, "headers")
	assertTree(t, tree(t, outDir), expectedTree("v18.20.4", "v16.20.2", "v12.22.12", "v10.24.1", "v4.9.1"))

	for _, name := range []string{"SHASUMS256.txt", "node-v16.20.2-headers.tar.gz", "node-v16.20.2-headers.tar.xz"} {
		got, err := os.ReadFile(filepath.Join(outDir, "v16.20.2", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if want := setup.Dist.File("/v16.20.2/" + name); string(got) != string(want) {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestFetchDefaultsToTempDir(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Versions: []string{"v20.11.1"}})

	result := h.Run("--base-url", setup.Dist.BaseURL())
	if result.Err != nil {
		t.Fatalf("fetch failed: %v", result.Err)
	}

	matches, err := filepath.Glob(filepath.Join(setup.BaseDir, "crispy-succotash-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one temp output dir, got %v", matches)
	}
	assertTree(t, tree(t, matches[0]), expectedTree("v20.11.1"))
}

func TestFetchFromConfigFile(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Versions: indexVersions})

	cfg := "out_dir: from-config\nfloor: 16.0.0\nbase_url: " + setup.Dist.BaseURL() + "\n"
	if err := os.WriteFile("crispy-succotash.yaml", []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	result := h.Run("-f", "crispy-succotash.yaml")
	if result.Err != nil {
		t.Fatalf("fetch failed: %v", result.Err)
	}

	assertTree(t, tree(t, filepath.Join(setup.ProjectDir, "from-config")), expectedTree("v18.20.4", "v16.20.2"))
}

func TestFetchExistingVersionDir(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Versions: []string{"v20.11.1"}})

	if err := os.MkdirAll(filepath.Join("out", "v20.11.1"), 0o755); err != nil {
		t.Fatalf("seed version dir: %v", err)
	}

	result := h.Run("-o", "out", "--base-url", setup.Dist.BaseURL())
	if result.Err != nil {
		t.Fatalf("fetch failed: %v", result.Err)
	}
	assertTree(t, tree(t, filepath.Join(setup.ProjectDir, "out")), expectedTree("v20.11.1"))
}

func TestFetchExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness.Harness, setup *harness.SetupResult)
		exitCode int
	}{
		{
			name: "index unavailable",
			setup: func(_ *harness.Harness, setup *harness.SetupResult) {
				setup.Dist.SetStatus("/index.json", http.StatusNotFound)
			},
			exitCode: 3,
		},
		{
			name: "artifact missing",
			setup: func(_ *harness.Harness, setup *harness.SetupResult) {
				setup.Dist.SetStatus("/v20.11.1/node-v20.11.1-headers.tar.xz", http.StatusNotFound)
			},
			exitCode: 3,
		},
		{
			name: "malformed index",
			setup: func(_ *harness.Harness, setup *harness.SetupResult) {
				setup.Dist.SetIndex(`[{"version":"v20.11.1"},{"version":"twenty"}]`)
			},
			exitCode: 2,
		},
		{
			name: "index with trailing data",
			setup: func(_ *harness.Harness, setup *harness.SetupResult) {
				setup.Dist.SetIndex(`[{"version":"v20.11.1"}] trailing`)
			},
			exitCode: 2,
		},
		{
			name: "output root is a file",
			setup: func(h *harness.Harness, _ *harness.SetupResult) {
				if err := os.WriteFile("out", []byte("x"), 0o644); err != nil {
					h.T.Fatalf("seed file: %v", err)
				}
			},
			exitCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &harness.Harness{T: t}
			setup := h.NewIsolatedFS(&harness.FSOptions{Versions: []string{"v20.11.1"}})
			tt.setup(h, setup)

			result := h.Run("-o", "out", "--base-url", setup.Dist.BaseURL())
			if result.Err == nil {
				t.Fatal("expected failure")
			}
			if result.ExitCode != tt.exitCode {
				t.Errorf("expected exit code %d, got %d (%v)", tt.exitCode, result.ExitCode, result.Err)
			}
			if result.Stdout != "" {
				t.Errorf("expected no output on failure, got %q", result.Stdout)
			}
		})
	}
}
