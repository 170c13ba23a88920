package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schmitthub/crispy-succotash/internal/dist"
	"github.com/schmitthub/crispy-succotash/internal/fetcher"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "parse", err: &dist.ParseError{Entry: -1, Err: errors.New("bad")}, want: 2},
		{name: "network", err: &dist.NetworkError{URL: "https://nodejs.org/dist/index.json", StatusCode: 503}, want: 3},
		{name: "filesystem", err: &fetcher.FilesystemError{Op: "create file", Path: "/x", Err: errors.New("denied")}, want: 5},
		{name: "wrapped stream", err: fmt.Errorf("run: %w", &fetcher.StreamError{Err: errors.New("reset")}), want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
