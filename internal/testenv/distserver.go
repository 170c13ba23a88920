package testenv

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// DistMount is the path the fake distribution tree is served under, so
// clients must honor a base URL that already has a path.
const DistMount = "/dist"

// DistServer imitates a Node.js distribution host: an index.json plus the
// header artifacts of every listed version.
type DistServer struct {
	*httptest.Server

	mu       sync.Mutex
	index    []byte
	files    map[string][]byte
	status   map[string]int
	requests []string
}

// NewDistServer serves an index listing versions and artifacts for each of
// them. It is closed when the test ends.
func NewDistServer(t *testing.T, versions ...string) *DistServer {
	t.Helper()

	entries := make([]map[string]any, 0, len(versions))
	for _, version := range versions {
		entries = append(entries, map[string]any{
			"version": version,
			"date":    "2022-04-05",
			"files":   []string{"headers", "linux-x64"},
			"npm":     "6.14.16",
			"lts":     false,
		})
	}
	index, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("testenv: encoding index: %v", err)
	}

	s := &DistServer{
		index:  index,
		files:  make(map[string][]byte),
		status: make(map[string]int),
	}
	for _, version := range versions {
		for _, name := range []string{
			"SHASUMS256.txt",
			"node-" + version + "-headers.tar.gz",
			"node-" + version + "-headers.tar.xz",
		} {
			s.files["/"+version+"/"+name] = []byte(fmt.Sprintf("%s contents of %s\n", name, version))
		}
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the distribution root to hand to a client.
func (s *DistServer) BaseURL() string {
	return s.URL + DistMount
}

// SetIndex replaces the raw index.json body.
func (s *DistServer) SetIndex(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = []byte(body)
}

// SetStatus makes path (relative to the mount, e.g. "/v1.0.0/SHASUMS256.txt"
// or "/index.json") answer with code.
func (s *DistServer) SetStatus(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = code
}

// File returns the body served for path.
func (s *DistServer) File(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[path]
}

// Requests returns every requested path, relative to the mount, in arrival
// order.
func (s *DistServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestsFor returns the requests made below one version directory.
func (s *DistServer) RequestsFor(version string) []string {
	var out []string
	for _, path := range s.Requests() {
		if strings.HasPrefix(path, "/"+version+"/") {
			out = append(out, path)
		}
	}
	return out
}

func (s *DistServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.URL.Path, DistMount+"/") {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, DistMount)

	s.mu.Lock()
	s.requests = append(s.requests, path)
	code, overridden := s.status[path]
	index := s.index
	body, ok := s.files[path]
	s.mu.Unlock()

	if overridden {
		w.WriteHeader(code)
		return
	}

	if path == "/index.json" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(index)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(body)
}
