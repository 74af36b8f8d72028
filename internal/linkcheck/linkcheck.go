// Package linkcheck recognizes links to the media hosts the bot can fetch from.
package linkcheck

import (
	"regexp"
	"strings"
)

// Patterns are matched from the start of the input only; anything after a
// matching prefix is accepted.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?(youtube\.com|youtu\.be)/.+`),
	regexp.MustCompile(`^https?://(www\.)?instagram\.com/(p|reel)/.+`),
	regexp.MustCompile(`^https?://(vm\.tiktok\.com|(www\.)?tiktok\.com)/.+`),
	regexp.MustCompile(`^https?://(www\.)?facebook\.com/.+`),
	regexp.MustCompile(`^https?://(www\.)?twitter\.com/.+`),
}

// IsSupported reports whether url points at one of the supported hosts.
func IsSupported(url string) bool {
	for _, p := range patterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// IsInstagram reports whether url refers to Instagram. Instagram only serves
// pre-muxed formats, so callers force the "best" format for it.
func IsInstagram(url string) bool {
	return strings.Contains(url, "instagram")
}
