package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	checkInterval     = 12 * time.Hour
	defaultAPIBaseURL = "https://api.github.com"
	stateDirName      = "crispy-succotash"
)

type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

// Options configures a release check.
type Options struct {
	StatePath      string
	CurrentVersion string
	// Repo is the GitHub "owner/name" publishing releases.
	Repo string
	// APIBaseURL defaults to the public GitHub API.
	APIBaseURL string
	Logger     *zerolog.Logger
}

type state struct {
	LastChecked   time.Time `json:"last_checked"`
	LatestVersion string    `json:"latest_version"`
	ReleaseURL    string    `json:"release_url"`
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

func DefaultStatePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil || strings.TrimSpace(cacheDir) == "" {
		cacheDir = ".cache"
	}

	targetDir := filepath.Join(cacheDir, stateDirName)
	if mkErr := os.MkdirAll(targetDir, 0o755); mkErr != nil {
		return "", fmt.Errorf("create update cache directory: %w", mkErr)
	}

	return filepath.Join(targetDir, "update-state.json"), nil
}

// CheckForUpdate reports whether a newer release than CurrentVersion exists.
// Development builds and unparseable versions are never reported. A fresh
// cached answer skips the network.
func CheckForUpdate(ctx context.Context, opts Options) (*CheckResult, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	currentVersion := normalizeVersion(opts.CurrentVersion)
	if currentVersion == "" || strings.HasPrefix(strings.ToLower(currentVersion), "dev") {
		return nil, nil
	}

	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return nil, nil
	}

	cached := readState(opts.StatePath)
	if cached != nil && time.Since(cached.LastChecked) < checkInterval {
		logger.Debug().Str("latest", cached.LatestVersion).Msg("Using cached release check")
		return cachedResult(current, cached), nil
	}

	release, err := fetchLatestRelease(ctx, opts, logger)
	if err != nil {
		if cached != nil {
			return cachedResult(current, cached), nil
		}
		return nil, err
	}

	normalizedLatest := normalizeVersion(release.TagName)
	nextState := state{
		LastChecked:   time.Now().UTC(),
		LatestVersion: normalizedLatest,
		ReleaseURL:    release.HTMLURL,
	}
	if err := writeState(opts.StatePath, nextState); err != nil {
		logger.Debug().Err(err).Str("path", opts.StatePath).Msg("Could not persist release check")
	}

	return cachedResult(current, &nextState), nil
}

func fetchLatestRelease(ctx context.Context, opts Options, logger zerolog.Logger) (*githubRelease, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.APIBaseURL), "/")
	if base == "" {
		base = defaultAPIBaseURL
	}
	url := fmt.Sprintf("%s/repos/%s/releases/latest", base, strings.TrimSpace(opts.Repo))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "crispy-succotash-update-check")

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	logger.Debug().Str("url", url).Msg("Checking for a newer release")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github releases api returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	if strings.TrimSpace(release.TagName) == "" {
		return nil, fmt.Errorf("github release tag is empty")
	}

	return &release, nil
}

func readState(path string) *state {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var s state
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}

	return &s
}

func writeState(path string, s state) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func cachedResult(current *semver.Version, cached *state) *CheckResult {
	latest, err := semver.NewVersion(normalizeVersion(cached.LatestVersion))
	if err != nil {
		return nil
	}
	if !latest.GreaterThan(current) {
		return nil
	}

	return &CheckResult{
		CurrentVersion:  current.Original(),
		LatestVersion:   latest.Original(),
		ReleaseURL:      cached.ReleaseURL,
		UpdateAvailable: true,
	}
}

func normalizeVersion(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "v")
}
