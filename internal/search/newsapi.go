// Package search pulls article candidates from upstream providers.
// Providers swallow their own failures: callers get an empty list and a
// log record, never a transport error.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/model"
)

const defaultNewsAPIBase = "https://newsapi.org/v2"

// Searcher produces article candidates for a query. The pipeline does
// not distinguish "no results" from "provider error"; both are empty.
type Searcher interface {
	Search(ctx context.Context, query, language string, pageSize int) []model.Candidate
	Headlines(ctx context.Context, country, category string, pageSize int) []model.Candidate
}

// NewsAPIClient talks to the NewsAPI "everything" and "top-headlines"
// endpoints.
type NewsAPIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ Searcher = (*NewsAPIClient)(nil)

// NewNewsAPIClient builds a client. baseURL may be empty for production.
func NewNewsAPIClient(baseURL, apiKey string, logger *zap.Logger) *NewsAPIClient {
	if baseURL == "" {
		baseURL = defaultNewsAPIBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsAPIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search queries the "everything" endpoint over the past week, newest
// first. An empty language leaves the provider's default in place.
func (c *NewsAPIClient) Search(ctx context.Context, query, language string, pageSize int) []model.Candidate {
	now := time.Now()
	params := url.Values{}
	params.Set("q", query)
	params.Set("from", now.AddDate(0, 0, -7).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprint(pageSize))
	if language != "" {
		params.Set("language", language)
	}
	return c.fetch(ctx, "/everything", params)
}

// Headlines queries the "top-headlines" endpoint for a country, with an
// optional category.
func (c *NewsAPIClient) Headlines(ctx context.Context, country, category string, pageSize int) []model.Candidate {
	params := url.Values{}
	params.Set("country", country)
	params.Set("pageSize", fmt.Sprint(pageSize))
	if category != "" {
		params.Set("category", category)
	}
	return c.fetch(ctx, "/top-headlines", params)
}

func (c *NewsAPIClient) fetch(ctx context.Context, path string, params url.Values) []model.Candidate {
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		c.logger.Error("newsapi request build failed", zap.Error(err))
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("newsapi request failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("newsapi bad status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error("newsapi decode failed", zap.Error(err))
		return nil
	}

	candidates := make([]model.Candidate, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.URL == "" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		candidates = append(candidates, model.Candidate{
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			Content:     a.Content,
			Source:      a.Source.Name,
			PublishedAt: published,
		})
	}

	c.logger.Info("newsapi fetch complete",
		zap.String("path", path),
		zap.Int("candidates", len(candidates)))
	return candidates
}
