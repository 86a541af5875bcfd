package utils

import (
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[\x00\\/:*?"<>|]`)

// SanitizeFilename makes a comic or chapter name usable as a single path
// element. Every invalid character becomes "-".
func SanitizeFilename(name string) string {
	safe := invalidFilenameChars.ReplaceAllString(name, "-")
	safe = strings.TrimSpace(safe)
	if safe == "" || safe == "." || safe == ".." {
		safe = "untitled"
	}
	return safe
}
