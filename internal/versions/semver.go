package versions

import (
	"fmt"
	"sort"
	"strings"

	semver "github.com/Masterminds/semver/v3"

	"github.com/schmitthub/crispy-succotash/internal/dist"
)

// DefaultFloor is the lowest release line fetched when no floor is configured.
const DefaultFloor = "4.0.0"

// ParseFloor parses a floor version. An empty value yields DefaultFloor.
func ParseFloor(raw string) (*semver.Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultFloor
	}
	floor, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid floor version %q: %w", raw, err)
	}
	return floor, nil
}

// SelectLatest reduces releases to the greatest release of each major line,
// ignoring anything below floor. A nil floor means DefaultFloor.
//
// The result holds one release per major, ordered by descending major.
func SelectLatest(releases []dist.ReleaseInfo, floor *semver.Version) []dist.ReleaseInfo {
	if floor == nil {
		floor = semver.MustParse(DefaultFloor)
	}

	latest := make(map[uint64]dist.ReleaseInfo)
	for _, info := range releases {
		version := releaseVersion(info)
		if version == nil || version.LessThan(floor) {
			continue
		}

		current, ok := latest[version.Major()]
		if !ok || version.GreaterThan(releaseVersion(current)) {
			latest[version.Major()] = info
		}
	}

	majors := make([]uint64, 0, len(latest))
	for major := range latest {
		majors = append(majors, major)
	}
	sort.Slice(majors, func(i, j int) bool {
		return majors[i] > majors[j]
	})

	selected := make([]dist.ReleaseInfo, 0, len(majors))
	for _, major := range majors {
		selected = append(selected, latest[major])
	}
	return selected
}

// releaseVersion prefers the version parsed at decode time and falls back to
// parsing the raw string for hand-built values.
func releaseVersion(info dist.ReleaseInfo) *semver.Version {
	if v := info.Semver(); v != nil {
		return v
	}
	v, err := semver.NewVersion(info.Version)
	if err != nil {
		return nil
	}
	return v
}
