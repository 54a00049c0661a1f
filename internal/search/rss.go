package search

import (
	"context"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/model"
)

const maxFeedItems = 10

// RSSSource pulls candidates from an RSS/Atom feed. Like the other
// providers it returns an empty list on any failure.
type RSSSource struct {
	parser *gofeed.Parser
	logger *zap.Logger
}

// NewRSSSource builds a feed source.
func NewRSSSource(logger *zap.Logger) *RSSSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RSSSource{
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch parses the feed at feedURL and returns up to maxFeedItems
// candidates.
func (s *RSSSource) Fetch(ctx context.Context, feedURL string) []model.Candidate {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		s.logger.Error("rss parse failed", zap.String("feed", feedURL), zap.Error(err))
		return nil
	}

	items := feed.Items
	if len(items) > maxFeedItems {
		items = items[:maxFeedItems]
	}

	candidates := make([]model.Candidate, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		c := model.Candidate{
			Title:       item.Title,
			URL:         item.Link,
			Description: item.Description,
			Source:      feed.Title,
		}
		if item.PublishedParsed != nil {
			c.PublishedAt = *item.PublishedParsed
		}
		candidates = append(candidates, c)
	}

	s.logger.Info("rss fetch complete",
		zap.String("feed", feedURL),
		zap.Int("candidates", len(candidates)))
	return candidates
}
