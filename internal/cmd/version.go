package cmd

import (
	"fmt"
	"strings"
)

func formatVersion(version, buildDate string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		version = "DEV"
	}

	if strings.TrimSpace(buildDate) != "" {
		return fmt.Sprintf("crispy-succotash version %s (%s)\n", version, strings.TrimSpace(buildDate))
	}

	return fmt.Sprintf("crispy-succotash version %s\n", version)
}
