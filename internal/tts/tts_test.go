package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"chinese summary", "台灣經濟部今日宣布新的半導體政策。", "zh-TW"},
		{"english summary", "The government announced a new policy today.", "en-US"},
		{"mixed mostly chinese", "台積電 TSMC 宣布新製程技術細節。", "zh-TW"},
		{"empty defaults to chinese", "", "zh-TW"},
		{"punctuation only", "。！？", "zh-TW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}

func TestGoogleClient_Synthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cmn-TW", req.Voice.LanguageCode, "chinese text picks the cmn-TW voice")
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)

		fmt.Fprintf(w, `{"audioContent":%q}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer srv.Close()

	client := NewGoogleClient(srv.URL, "k")
	got, err := client.Synthesize(context.Background(), "台灣今日新聞摘要。", "")
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestGoogleClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewGoogleClient(srv.URL, "k")
	_, err := client.Synthesize(context.Background(), "text", "en-US")
	assert.Error(t, err)

	unconfigured := NewGoogleClient(srv.URL, "")
	_, err = unconfigured.Synthesize(context.Background(), "text", "")
	assert.Error(t, err)
}
