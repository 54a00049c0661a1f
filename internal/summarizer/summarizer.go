// Package summarizer turns extracted article text into a bounded
// natural-language summary. The AI path goes through Gemini; on any API
// failure a deterministic extractive fallback takes over, so a non-empty
// input always yields a non-empty summary.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxLength bounds summaries on the background pipeline path.
const DefaultMaxLength = 150

// promptContentCap limits how much cleaned content goes into the prompt.
const promptContentCap = 2000

const promptTemplate = `請將以下新聞內容摘要成 %d 字以內的中文摘要。
摘要應該：
1. 保留最重要的資訊
2. 使用簡潔易懂的語言
3. 適合語音播報
4. 保持客觀中立的語氣
5. 忽略網站導航、廣告和技術性元數據
6. 只回傳摘要內容，不要其他解釋

新聞標題：%s
新聞內容：%s

請提供摘要：`

// Summarizer drives the two-tier summary flow.
type Summarizer struct {
	gen    Generator
	logger *zap.Logger
}

// New wires a generator. A nil gen means every call takes the
// extractive fallback path.
func New(gen Generator, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{gen: gen, logger: logger}
}

// BuildPrompt assembles the generation request for cleaned content.
// The maxLength figure is an instruction to the model, not an enforced
// truncation.
func BuildPrompt(cleanContent, title string, maxLength int) string {
	return fmt.Sprintf(promptTemplate, maxLength, title, truncateRunes(cleanContent, promptContentCap))
}

// Summarize produces a summary of text within roughly maxLength runes.
// Only an empty input produces an empty result.
func (s *Summarizer) Summarize(ctx context.Context, text, title string, maxLength int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	if s.gen != nil {
		clean := ExtractMainContent(text)
		summary, err := s.gen.Generate(ctx, BuildPrompt(clean, title, maxLength))
		if err == nil {
			summary = strings.TrimSpace(summary)
			if summary != "" {
				return summary
			}
		} else {
			s.logger.Warn("ai summary failed, using extractive fallback",
				zap.String("title", title),
				zap.Error(err))
		}
	}

	return ExtractiveSummary(text, title, maxLength)
}
