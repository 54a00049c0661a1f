package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const readerResponse = `Title: 測試新聞
URL Source: https://example.com/a
Markdown Content:
首頁 新聞 股市 運動
台灣經濟部今日宣布新的半導體產業政策，預計投入千億元協助業者升級製程設備。
* [Image 1]
Subscribe to our Newsletter for updates and more information about terms
相關官員表示，這項政策將分三年執行，優先支持中小型供應鏈廠商的研發工作。
產業分析師指出，全球市場競爭加劇，台灣必須維持先進製程的領先地位才能確保出口動能。
`

func TestExtractMainContent_FiltersBoilerplate(t *testing.T) {
	got := ExtractMainContent(readerResponse)

	assert.Contains(t, got, "半導體產業政策")
	assert.Contains(t, got, "優先支持中小型供應鏈廠商")
	assert.NotContains(t, got, "首頁")
	assert.NotContains(t, got, "Image")
	assert.NotContains(t, got, "Newsletter")
}

func TestExtractMainContent_NoMarkerFallsBackToRaw(t *testing.T) {
	raw := strings.Repeat("一段沒有標記的內容。", 200)
	got := ExtractMainContent(raw)
	assert.Equal(t, truncateRunes(raw, rawFallbackLen), got)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), rawFallbackLen)
}

func TestSummarize_AIPath(t *testing.T) {
	gen := &fakeGenerator{response: "  台灣宣布新的半導體政策。  "}
	s := New(gen, zap.NewNop())

	got := s.Summarize(context.Background(), readerResponse, "測試新聞", 150)

	assert.Equal(t, "台灣宣布新的半導體政策。", got)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "測試新聞")
	assert.Contains(t, gen.prompts[0], "150 字以內")
	assert.NotContains(t, gen.prompts[0], "首頁", "prompt must receive cleaned content")
}

func TestSummarize_FallsBackOnAPIError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	s := New(gen, zap.NewNop())

	got := s.Summarize(context.Background(), readerResponse, "測試新聞", 150)

	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 151, "fallback is hard-capped at max+1")
}

func TestSummarize_NilGeneratorUsesFallback(t *testing.T) {
	s := New(nil, zap.NewNop())
	got := s.Summarize(context.Background(), readerResponse, "測試新聞", 150)
	assert.NotEmpty(t, got)
}

func TestSummarize_EmptyTextYieldsEmpty(t *testing.T) {
	s := New(&fakeGenerator{response: "whatever"}, zap.NewNop())
	assert.Empty(t, s.Summarize(context.Background(), "   ", "t", 150))
}

func TestExtractiveSummary_PicksKeywordSentences(t *testing.T) {
	content := "Markdown Content:\n" +
		"這是一句完全沒有特別字詞的普通長句子而且足夠長度。" +
		"台灣經濟部今日宣布新的半導體產業政策並投入大量資源協助業者。" +
		"另一句也沒有特別字詞只是用來填充長度的句子而已啊。"

	got := ExtractiveSummary(content, "標題", 150)

	assert.Contains(t, got, "台灣經濟部")
	assert.True(t, strings.HasSuffix(got, "。") || strings.HasSuffix(got, "…"))
}

func TestExtractiveSummary_NeverExceedsMaxPlusOne(t *testing.T) {
	long := "Markdown Content:\n" + strings.Repeat("台灣相關的報導內容持續增加而且這一句非常長。", 50)

	for _, max := range []int{20, 50, 150} {
		got := ExtractiveSummary(long, "標題", max)
		assert.NotEmpty(t, got)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), max+1, "max=%d", max)
	}
}

func TestExtractiveSummary_TinyContentUsesTitle(t *testing.T) {
	got := ExtractiveSummary("太短", "重要標題", 150)
	assert.Contains(t, got, "重要標題")
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 151)
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"生成的摘要"}]}}]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "", "k")
	got, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "生成的摘要", got)
}

func TestGeminiClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "", "k")
	_, err := client.Generate(context.Background(), "prompt")
	assert.Error(t, err)

	unconfigured := NewGeminiClient(srv.URL, "", "")
	_, err = unconfigured.Generate(context.Background(), "prompt")
	assert.Error(t, err, "missing key must surface as an error for the fallback to catch")
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "", "k")
	_, err := client.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
