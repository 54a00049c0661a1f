package summarizer

import (
	"strings"
	"unicode/utf8"
)

// Keywords marking sentences worth keeping in an extractive summary.
var summaryKeywords = []string{
	"台灣", "關稅", "川普", "新聞", "發表", "宣布", "表示", "指出",
	"報導", "文化", "教學", "海外",
}

// sentenceTerminators are the native full-stop marks used to split and
// re-terminate sentences.
const sentenceTerminators = "。！？"

func splitSentences(text string) []string {
	var sentences []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(sentenceTerminators, r)
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func hasKeyword(sentence string) bool {
	for _, kw := range summaryKeywords {
		if strings.Contains(sentence, kw) {
			return true
		}
	}
	return false
}

// clamp bounds the summary at maxLength runes plus at most one trailing
// ellipsis rune.
func clamp(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	return truncateRunes(s, maxLength) + "…"
}

// ExtractiveSummary builds a summary by selecting existing sentences:
// keyword-bearing ones first, the leading ones otherwise, truncation as
// the last resort. The result never exceeds maxLength+1 runes.
func ExtractiveSummary(content, title string, maxLength int) string {
	main := ExtractMainContent(content)
	if utf8.RuneCountInString(main) < 50 {
		main = cleanWholeText(content)
	}
	if utf8.RuneCountInString(main) < 50 {
		return clamp(title+" - 詳細內容請點擊原文連結查看。", maxLength)
	}

	sentences := splitSentences(main)

	var key []string
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) > 15 && hasKeyword(sentence) {
			key = append(key, sentence)
			if utf8.RuneCountInString(strings.Join(key, "。")) > maxLength {
				break
			}
		}
	}

	pick := key
	if len(pick) == 0 {
		pick = sentences
	}
	if len(pick) > 2 {
		pick = pick[:2]
	}

	if len(pick) > 0 {
		result := strings.Join(pick, "。")
		if !strings.HasSuffix(result, "。") {
			result += "。"
		}
		return clamp(result, maxLength)
	}

	return clamp(main, maxLength)
}
