package build

import "runtime/debug"

// Variables injected via ldflags at build time:
//
//	-X github.com/schmitthub/crispy-succotash/internal/build.Version=1.2.3
//	-X github.com/schmitthub/crispy-succotash/internal/build.Date=2026-01-02
var (
	Version = "DEV"
	Date    = "" // YYYY-MM-DD, empty for dev builds
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		Version = resolveVersion(Version, info)
	}
}

// resolveVersion prefers an ldflags version, then the module version recorded
// by `go install`, then the short VCS revision of a local build.
func resolveVersion(current string, info *debug.BuildInfo) string {
	if current != "DEV" || info == nil {
		return current
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return "DEV+" + setting.Value[:7]
		}
	}
	return current
}
