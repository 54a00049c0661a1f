package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewsAPIClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "taiwan", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "zh", r.URL.Query().Get("language"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))

		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{
					"title":       "First story",
					"url":         "https://example.com/a",
					"description": "desc a",
					"content":     "content a",
					"publishedAt": "2025-08-20T08:00:00Z",
					"source":      map[string]string{"name": "Example News"},
				},
				{
					// Missing url, must be dropped.
					"title": "No link",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewNewsAPIClient(srv.URL, "test-key", zap.NewNop())
	candidates := client.Search(context.Background(), "taiwan", "zh", 10)

	require.Len(t, candidates, 1)
	assert.Equal(t, "First story", candidates[0].Title)
	assert.Equal(t, "https://example.com/a", candidates[0].URL)
	assert.Equal(t, "Example News", candidates[0].Source)
	assert.Equal(t, 2025, candidates[0].PublishedAt.Year())
}

func TestNewsAPIClient_Headlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)
		assert.Equal(t, "hk", r.URL.Query().Get("country"))
		assert.Equal(t, "business", r.URL.Query().Get("category"))

		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{"title": "Headline", "url": "https://example.com/h"},
			},
		})
	}))
	defer srv.Close()

	client := NewNewsAPIClient(srv.URL, "test-key", zap.NewNop())
	candidates := client.Headlines(context.Background(), "hk", "business", 5)

	require.Len(t, candidates, 1)
	assert.Equal(t, "Headline", candidates[0].Title)
}

func TestNewsAPIClient_ProviderErrorYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","code":"apiKeyInvalid"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewNewsAPIClient(srv.URL, "bad-key", zap.NewNop())
	candidates := client.Search(context.Background(), "taiwan", "", 10)
	assert.Empty(t, candidates, "provider errors map to an empty candidate list")
}

func TestNewsAPIClient_UnreachableYieldsEmpty(t *testing.T) {
	client := NewNewsAPIClient("http://127.0.0.1:1", "k", zap.NewNop())
	candidates := client.Headlines(context.Background(), "tw", "", 10)
	assert.Empty(t, candidates)
}
