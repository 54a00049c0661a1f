package summarizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// mainContentCap stops accumulation once enough body text is found.
	mainContentCap = 1500

	// rawFallbackLen is how much raw text to keep when no body marker
	// survives the line filters.
	rawFallbackLen = 1000
)

// contentMarker precedes the article body in reader-proxy responses.
const contentMarker = "Markdown Content:"

// Navigation and boilerplate fragments that never belong to body text.
var skipPatterns = []string{
	"首頁", "新聞", "股市", "運動", "TV", "汽機車", "購物中心", "拍賣",
	"登入", "搜尋", "Yahoo", "App", "熱搜", "立即下載", "廣告", "訂閱",
	"隱私權", "Privacy", "Cookie", "Terms", "===", "---", "===============",
	"*", "[", "]", "Image", "href", "http", "www.",
}

// Metadata lines emitted by the reader proxy around the body.
var metadataPatterns = []string{
	"Title:", "URL Source:", "Markdown Content:", "Published Time:",
	"===", "---", "Warning:", "collectConsent", "Yahoo奇摩",
	"Your Privacy Choices", "If you are a resident of", "Privacy Policy",
	"Cookie Policy", "Terms of Service", "Subscribe", "Newsletter",
}

// asciiNavLine matches lines that are pure ASCII prose; in an otherwise
// CJK article these are legal or navigation boilerplate.
var asciiNavLine = regexp.MustCompile(`^[a-zA-Z\s\d\.,;&%\(\)\[\]]+$`)

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func skipLine(line string) bool {
	for _, pattern := range skipPatterns {
		if strings.Contains(line, pattern) {
			return true
		}
	}
	if utf8.RuneCountInString(line) < 15 {
		return true
	}
	if strings.HasPrefix(line, "*") || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "!") {
		return true
	}
	if asciiNavLine.MatchString(line) && utf8.RuneCountInString(line) > 20 {
		return true
	}
	return false
}

// ExtractMainContent pulls the article body out of a reader-proxy
// response: everything after the content marker, minus navigation,
// boilerplate, and pure-ASCII filler lines, capped at mainContentCap
// runes. When nothing survives it falls back to the leading raw text.
func ExtractMainContent(content string) string {
	lines := strings.Split(content, "\n")

	var kept []string
	for i, line := range lines {
		if !strings.Contains(line, contentMarker) {
			continue
		}
		for _, raw := range lines[i+1:] {
			candidate := strings.TrimSpace(raw)
			if candidate == "" || skipLine(candidate) {
				continue
			}
			kept = append(kept, candidate)
			if utf8.RuneCountInString(strings.Join(kept, " ")) > mainContentCap {
				break
			}
		}
		break
	}

	if len(kept) == 0 {
		return truncateRunes(content, rawFallbackLen)
	}
	return strings.Join(kept, " ")
}

// cleanWholeText is the looser second pass used by the extractive
// fallback when the marker-based extraction finds too little: it keeps
// every line that is not metadata, too short, or ASCII filler.
func cleanWholeText(content string) string {
	var kept []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if containsAny(line, metadataPatterns) {
			continue
		}
		if utf8.RuneCountInString(line) < 10 {
			continue
		}
		if asciiNavLine.MatchString(line) && utf8.RuneCountInString(line) > 20 {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
