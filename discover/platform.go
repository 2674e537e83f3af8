package discover

import (
	"path/filepath"
	"strings"
)

// UnknownPlatform labels catalogs whose file name carries no platform at
// all, such as a bare "(20240101).xml".
const UnknownPlatform = "Unknown"

// InferPlatform derives the platform label from a catalog file name. The
// label is the stem up to the first parenthesized group, trimmed, so both
// "Nintendo - Game Boy.xml" and
// "Nintendo - Game Boy (Parent-Clone) (20240101).xml" yield
// "Nintendo - Game Boy". Hyphens inside the stem are part of the label.
func InferPlatform(path string) string {
	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if idx := strings.Index(stem, " ("); idx >= 0 {
		stem = stem[:idx]
	}
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return UnknownPlatform
	}
	return stem
}
