package dist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Node.js distribution host.
const DefaultBaseURL = "https://nodejs.org/dist"

const indexFile = "index.json"

// Options configures the release index client.
type Options struct {
	// BaseURL is the distribution root. Paths are appended to it.
	// Default: DefaultBaseURL
	BaseURL string

	// Timeout for individual requests. Zero means no timeout.
	Timeout time.Duration

	// RetryAttempts is the number of retries after a failed request.
	// Default: 0
	RetryAttempts int

	// Logger receives request logs. Default: the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultOptions returns options pointing at the public distribution host
// with retries disabled.
func DefaultOptions() Options {
	return Options{BaseURL: DefaultBaseURL}
}

// Client fetches the release index and release artifacts.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates a new client with the given options.
func NewClient(opts Options) *Client {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryAttempts
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveledLogger{logger}
	// Hand the final response back so status handling stays in one place.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{http: rc, baseURL: baseURL, logger: logger}
}

// BaseURL returns the distribution root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL appends the given path elements to the base URL, keeping any path the
// base URL already carries.
func (c *Client) URL(elem ...string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", c.baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", c.baseURL)
	}
	return base.JoinPath(elem...).String(), nil
}

// FetchIndex downloads and decodes <base>/index.json.
func (c *Client) FetchIndex(ctx context.Context) ([]ReleaseInfo, error) {
	target, err := c.URL(indexFile)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// A transfer cut short surfaces here, before any JSON is looked at.
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}

	releases, err := DecodeIndex(bytes.NewReader(data))
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.URL = target
			return nil, perr
		}
		return nil, &NetworkError{URL: target, Err: err}
	}

	c.logger.Debug().Str("url", target).Int("releases", len(releases)).Msg("Fetched release index")
	return releases, nil
}

// FetchArtifact opens <base>/<version>/<filename>. The caller must close the
// returned body.
func (c *Client) FetchArtifact(ctx context.Context, version, filename string) (io.ReadCloser, error) {
	target, err := c.URL(version, filename)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, target)
}

func (c *Client) get(ctx context.Context, target string) (io.ReadCloser, error) {
	c.logger.Info().Str("url", target).Msg("Making request")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("status_text", resp.Status).
			Str("content_type", resp.Header.Get("Content-Type")).
			Msg("Request failed")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &NetworkError{URL: target, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// DecodeIndex strictly decodes an index document. The reader must hold exactly
// one JSON array. Every entry must carry a parseable semantic version; one bad
// entry fails the whole document.
func DecodeIndex(r io.Reader) ([]ReleaseInfo, error) {
	dec := json.NewDecoder(r)
	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
			errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ParseError{Entry: -1, Err: err}
		}
		return nil, err
	}
	if raw == nil {
		return nil, &ParseError{Entry: -1, Err: errors.New("index is not a JSON array")}
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected value %.32s", trailing)
		}
		return nil, &ParseError{Entry: -1, Err: fmt.Errorf("trailing data after index: %w", err)}
	}

	releases := make([]ReleaseInfo, 0, len(raw))
	for i, entry := range raw {
		var info ReleaseInfo
		if err := json.Unmarshal(entry, &info); err != nil {
			return nil, &ParseError{Entry: i, Err: err}
		}
		if strings.TrimSpace(info.Version) == "" {
			return nil, &ParseError{Entry: i, Err: errors.New("missing version")}
		}

		parsed, err := semver.NewVersion(info.Version)
		if err != nil {
			return nil, &ParseError{Entry: i, Err: fmt.Errorf("version %q: %w", info.Version, err)}
		}
		info.parsed = parsed
		releases = append(releases, info)
	}

	return releases, nil
}

// leveledLogger routes retryablehttp logging into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}
