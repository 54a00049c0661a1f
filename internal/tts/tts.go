// Package tts renders summaries as speech. The synthesizer is a
// terminal, non-retried call per unit of text; language is auto-detected
// when the caller leaves it empty.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode"
)

const defaultTTSBase = "https://texttospeech.googleapis.com"

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// voiceConfig picks a concrete voice per detected language.
type voiceConfig struct {
	languageCode string
	name         string
}

var voices = map[string]voiceConfig{
	"zh-TW": {languageCode: "cmn-TW", name: "cmn-TW-Standard-A"},
	"en-US": {languageCode: "en-US", name: "en-US-Standard-C"},
}

// DetectLanguage classifies text as zh-TW or en-US by its CJK rune
// ratio. Empty or non-alphanumeric text defaults to zh-TW.
func DetectLanguage(text string) string {
	var cjk, alnum int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if alnum == 0 {
		return "zh-TW"
	}
	if float64(cjk)/float64(alnum) > 0.3 {
		return "zh-TW"
	}
	return "en-US"
}

// GoogleClient calls the Google Cloud TTS REST endpoint and returns MP3
// bytes.
type GoogleClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Synthesizer = (*GoogleClient)(nil)

// NewGoogleClient builds a client. baseURL may be empty for production.
func NewGoogleClient(baseURL, apiKey string) *GoogleClient {
	if baseURL == "" {
		baseURL = defaultTTSBase
	}
	return &GoogleClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize renders text with the voice for language, auto-detecting
// when language is empty.
func (c *GoogleClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tts api key not configured")
	}
	if language == "" {
		language = DetectLanguage(text)
	}
	voice, ok := voices[language]
	if !ok {
		voice = voices["zh-TW"]
	}

	var req synthesizeRequest
	req.Input.Text = text
	req.Voice.LanguageCode = voice.languageCode
	req.Voice.Name = voice.name
	req.AudioConfig.AudioEncoding = "MP3"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text:synthesize?key=" + c.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tts status %d: %s", resp.StatusCode, payload)
	}

	var sr synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(sr.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return audio, nil
}
