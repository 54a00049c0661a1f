// Package filter classifies URLs and fetched text as usable or garbage
// before any summarization work is spent on them.
package filter

import (
	"strings"
	"unicode/utf8"
)

// minContentLength is the shortest extracted body worth keeping.
const minContentLength = 100

// URLs matching these substrings are consent walls or policy pages that
// never carry article text. Checked before any network call.
var blockedURLPatterns = []string{
	"consent.yahoo.com",
	"collectconsent",
	"privacy-policy",
	"cookie-policy",
	"terms-of-service",
}

// Extracted bodies containing these substrings are block notices or
// error pages rather than articles.
var invalidIndicators = []string{
	"blocked until",
	"ddos attack",
	"consent.yahoo.com",
	"collectconsent",
	"warning: target url",
	"404 not found",
	"access denied",
	"please enable javascript",
}

// IsBlockedURL reports whether the URL matches a known consent/policy
// pattern, case-insensitively.
func IsBlockedURL(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range blockedURLPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsInvalidContent reports whether extracted text is unusable: too short
// to be an article, or carrying a block/error indicator.
func IsInvalidContent(text string) bool {
	if utf8.RuneCountInString(text) < minContentLength {
		return true
	}
	lower := strings.ToLower(text)
	for _, indicator := range invalidIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
