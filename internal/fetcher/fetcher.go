// Package fetcher retrieves full article text. A Client wraps an
// extraction transport with the URL filter and the response cache.
// Ordinary failures never escape it; the caller sees an empty string
// and a log record.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/cache"
	"github.com/chiuchau-cyril/heario/internal/filter"
)

const (
	// DefaultTimeout bounds batch fetches; ad-hoc single fetches may
	// raise this up to 30s.
	DefaultTimeout = 10 * time.Second

	// DefaultWorkers bounds fan-out across urls.
	DefaultWorkers = 5

	userAgent = "Mozilla/5.0 (compatible; Heario/1.0)"
)

// ErrDomainBlocked signals the reader proxy refused the target domain.
var ErrDomainBlocked = errors.New("domain blocked by reader")

// ContentFetcher is the capability the pipeline depends on. FetchAll is
// total over its input: the result holds every input url as a key, with
// "" marking any kind of failure.
type ContentFetcher interface {
	FetchOne(ctx context.Context, url string) string
	FetchAll(ctx context.Context, urls []string) map[string]string
}

// Extractor is the raw transport turning a url into article text.
// Implementations report failures as errors; the Client maps them to "".
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// ReaderExtractor fetches text through a Jina-style reader proxy:
// GET {base}/{url} with optional bearer auth.
type ReaderExtractor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Extractor = (*ReaderExtractor)(nil)

// NewReaderExtractor builds a proxy transport rooted at baseURL
// (e.g. "https://r.jina.ai"). apiKey may be empty.
func NewReaderExtractor(baseURL, apiKey string) *ReaderExtractor {
	return &ReaderExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

type readerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Extract issues the proxy GET. A JSON body with code 451 means the
// target domain is blocked.
func (e *ReaderExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/"+url, nil)
	if err != nil {
		return "", fmt.Errorf("build reader request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", userAgent)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read reader body: %w", err)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var re readerError
		if json.Unmarshal(body, &re) == nil && re.Code == 451 {
			return "", fmt.Errorf("%w: %s", ErrDomainBlocked, re.Message)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reader status %d", resp.StatusCode)
	}

	return string(body), nil
}

// Client applies the filter and the cache around an Extractor.
type Client struct {
	extractor Extractor
	cache     *cache.Cache
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient wires a transport with a cache. A nil cache disables caching;
// a non-positive timeout falls back to DefaultTimeout.
func NewClient(extractor Extractor, c *cache.Cache, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		extractor: extractor,
		cache:     c,
		timeout:   timeout,
		logger:    logger,
	}
}

// FetchOne returns the article text for url, or "" when the url is
// blocked, the transport fails, or the body is unusable. It never
// returns an error for ordinary failures.
func (c *Client) FetchOne(ctx context.Context, url string) string {
	if filter.IsBlockedURL(url) {
		c.logger.Warn("blocked url skipped", zap.String("url", url))
		return ""
	}

	if c.cache != nil {
		if content, ok := c.cache.Get(url); ok {
			c.logger.Debug("cache hit", zap.String("url", url))
			return content
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.extractor.Extract(ctx, url)
	if err != nil {
		c.logger.Warn("extract failed", zap.String("url", url), zap.Error(err))
		return ""
	}

	body = strings.TrimSpace(body)
	if filter.IsInvalidContent(body) {
		c.logger.Warn("invalid content discarded",
			zap.String("url", url),
			zap.Int("length", len(body)))
		return ""
	}

	if c.cache != nil {
		c.cache.Put(url, body)
	}
	c.logger.Info("fetch ok", zap.String("url", url), zap.Int("length", len(body)))
	return body
}
