package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-shiori/go-readability"
)

// ReadabilityExtractor extracts article text by fetching the page
// directly and running readability over it. Used when no reader proxy
// is configured.
type ReadabilityExtractor struct {
	fallbackTimeout time.Duration
}

var _ Extractor = (*ReadabilityExtractor)(nil)

// NewReadabilityExtractor builds a direct extractor.
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{fallbackTimeout: DefaultTimeout}
}

// Extract downloads and strips the page at url. The deadline comes from
// ctx when set.
func (e *ReadabilityExtractor) Extract(ctx context.Context, url string) (string, error) {
	timeout := e.fallbackTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return article.TextContent, nil
}
