package dist

import (
	semver "github.com/Masterminds/semver/v3"
)

// ReleaseInfo is one entry of the distribution index.json.
type ReleaseInfo struct {
	// Version is the raw version string as published, e.g. "v12.22.12".
	// It names both the remote directory and the local output directory.
	Version string   `json:"version"`
	Date    string   `json:"date"`
	Files   []string `json:"files"`
	NPM     string   `json:"npm"`
	V8      string   `json:"v8"`

	parsed *semver.Version
}

// Semver returns the parsed version. It is nil only for values not produced
// by DecodeIndex or NewReleaseInfo.
func (r ReleaseInfo) Semver() *semver.Version {
	return r.parsed
}

// NewReleaseInfo builds a ReleaseInfo from a raw version string.
func NewReleaseInfo(version string) (ReleaseInfo, error) {
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return ReleaseInfo{}, err
	}
	return ReleaseInfo{Version: version, parsed: parsed}, nil
}
