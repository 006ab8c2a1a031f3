package domain

import (
	"path"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// NormalizeFileName lower-cases the stem, turns spaces into underscores and drops
// anything outside [a-zA-Z0-9_]. The extension is kept as is.
func NormalizeFileName(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stem = strings.ToLower(stem)
	stem = strings.ReplaceAll(stem, " ", "_")
	stem = unsafeNameChars.ReplaceAllString(stem, "")
	return stem + ext
}
