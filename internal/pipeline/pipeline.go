// Package pipeline drives one query end to end: search, dedup against
// the store, batch content fetch, sequential summarization, persist.
// The same stage logic backs both the blocking Run and the background
// Start; progress and state are observable through the task registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/fetcher"
	"github.com/chiuchau-cyril/heario/internal/model"
	"github.com/chiuchau-cyril/heario/internal/store"
	"github.com/chiuchau-cyril/heario/internal/task"
)

const (
	// DefaultPageSize is how many candidates one run requests.
	DefaultPageSize = 10

	// minUsableContent is the shortest content worth summarizing, after
	// falling back to the candidate's own description.
	minUsableContent = 50

	// existingResultCap bounds how many already-known records a run
	// returns when every candidate was seen before.
	existingResultCap = 10
)

// Stage progress checkpoints. The summarization stage interpolates
// linearly from progressSummaries to progressSummariesEnd per item.
const (
	progressSearch       = 10
	progressFilter       = 30
	progressFetch        = 50
	progressSummaries    = 75
	progressSummariesEnd = 95
)

// Searcher produces candidates. Empty means "no results or provider
// failure"; the pipeline treats both the same.
type Searcher interface {
	Search(ctx context.Context, query, language string, pageSize int) []model.Candidate
	Headlines(ctx context.Context, country, category string, pageSize int) []model.Candidate
}

// FeedSource pulls candidates from a syndication feed. Empty means the
// feed was unreachable or held no usable items.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) []model.Candidate
}

// Summarizer produces a bounded summary; it never fails, only degrades.
type Summarizer interface {
	Summarize(ctx context.Context, text, title string, maxLength int) string
}

// Orchestrator owns the per-query state machine. All collaborators are
// injected; swapping the fetch strategy is a construction-time choice.
type Orchestrator struct {
	searcher   Searcher
	fetcher    fetcher.ContentFetcher
	summarizer Summarizer
	store      store.Store
	registry   *task.Registry
	logger     *zap.Logger
	maxSummary int
}

// New wires an orchestrator.
func New(searcher Searcher, f fetcher.ContentFetcher, s Summarizer, st store.Store, reg *task.Registry, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		searcher:   searcher,
		fetcher:    f,
		summarizer: s,
		store:      st,
		registry:   reg,
		logger:     logger,
		maxSummary: 150,
	}
}

// candidateSource fetches the stage-one candidate list for a run.
type candidateSource func(ctx context.Context) []model.Candidate

func (o *Orchestrator) searchSource(query string, pageSize int) candidateSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(ctx context.Context) []model.Candidate {
		return o.searcher.Search(ctx, query, "", pageSize)
	}
}

// Run processes a query synchronously and returns the final task state.
// A run that ended in the error state also returns that error.
func (o *Orchestrator) Run(ctx context.Context, query string, pageSize int) (model.Task, error) {
	t := o.registry.Create(query)
	o.process(ctx, t.ID, query, o.searchSource(query, pageSize))
	return o.finish(t.ID)
}

// RunHeadlines is Run over the top-headlines provider instead of query
// search.
func (o *Orchestrator) RunHeadlines(ctx context.Context, country, category string, pageSize int) (model.Task, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	label := "headlines:" + country
	t := o.registry.Create(label)
	o.process(ctx, t.ID, label, func(ctx context.Context) []model.Candidate {
		return o.searcher.Headlines(ctx, country, category, pageSize)
	})
	return o.finish(t.ID)
}

// RunFeed is Run over a syndication feed instead of query search. The
// feed source is passed per call; feeds are ad-hoc inputs, not a fixed
// collaborator.
func (o *Orchestrator) RunFeed(ctx context.Context, feed FeedSource, feedURL string) (model.Task, error) {
	label := "feed:" + feedURL
	t := o.registry.Create(label)
	o.process(ctx, t.ID, label, func(ctx context.Context) []model.Candidate {
		return feed.Fetch(ctx, feedURL)
	})
	return o.finish(t.ID)
}

// Start launches a background run and returns its task id immediately.
// The run detaches from the caller's context; its state is observable
// via the registry until cancelled or evicted.
func (o *Orchestrator) Start(ctx context.Context, query string, pageSize int) uuid.UUID {
	t := o.registry.Create(query)
	go o.process(context.WithoutCancel(ctx), t.ID, query, o.searchSource(query, pageSize))
	return t.ID
}

func (o *Orchestrator) finish(id uuid.UUID) (model.Task, error) {
	final, err := o.registry.Get(id)
	if err != nil {
		return model.Task{}, err
	}
	if final.Status == model.StatusError {
		return final, errors.New(final.Error)
	}
	return final, nil
}

// cancelled is the cooperative stage-boundary check: in-flight work
// finishes, but no new stage starts after a cancellation.
func (o *Orchestrator) cancelled(id uuid.UUID) bool {
	if !o.registry.Cancelled(id) {
		return false
	}
	o.logger.Info("run cancelled, stopping at stage boundary", zap.String("task_id", id.String()))
	return true
}

func (o *Orchestrator) process(ctx context.Context, id uuid.UUID, label string, source candidateSource) {
	logger := o.logger.With(zap.String("task_id", id.String()), zap.String("query", label))

	// Stage: search.
	o.registry.SetStage(id, model.StatusFetchingArticles, progressSearch, "正在搜尋新聞...")
	candidates := source(ctx)
	if len(candidates) == 0 {
		logger.Info("no candidates found")
		o.registry.Complete(id, []model.NewsSummary{}, 0, 0, "沒有找到相關新聞")
		return
	}

	if o.cancelled(id) {
		return
	}

	// Stage: dedup against the store.
	o.registry.SetStage(id, model.StatusFilteringArticles, progressFilter,
		fmt.Sprintf("找到 %d 篇文章，正在過濾...", len(candidates)))

	var unseen []model.Candidate
	var existing []model.NewsSummary
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		record, err := o.store.FindByURL(ctx, c.URL)
		switch {
		case errors.Is(err, store.ErrNotFound):
			unseen = append(unseen, c)
		case err != nil:
			logger.Error("dedup lookup failed", zap.String("url", c.URL), zap.Error(err))
			o.registry.Fail(id, err.Error())
			return
		default:
			if len(existing) < existingResultCap {
				existing = append(existing, record.Serialize())
			}
		}
	}

	if len(unseen) == 0 {
		logger.Info("all candidates already stored", zap.Int("existing", len(existing)))
		o.registry.Complete(id, existing, len(candidates), 0,
			fmt.Sprintf("所有文章都已存在，返回 %d 篇", len(existing)))
		return
	}

	if o.cancelled(id) {
		return
	}

	// Stage: batch content fetch.
	o.registry.SetStage(id, model.StatusFetchingContent, progressFetch,
		fmt.Sprintf("正在抓取 %d 篇文章內容...", len(unseen)))

	urls := make([]string, len(unseen))
	for i, c := range unseen {
		urls[i] = c.URL
	}
	contents := o.fetcher.FetchAll(ctx, urls)

	if o.cancelled(id) {
		return
	}

	// Stage: summarize and persist, sequentially.
	o.registry.SetStage(id, model.StatusGeneratingSummaries, progressSummaries, "正在生成摘要...")

	var processed []model.NewsSummary
	for i, c := range unseen {
		content := contents[c.URL]
		if content == "" {
			content = c.Content
		}
		if content == "" {
			content = c.Description
		}

		if utf8.RuneCountInString(content) >= minUsableContent {
			summary := o.summarizer.Summarize(ctx, content, c.Title, o.maxSummary)
			record := model.NewNewsRecord(c.Title, summary, c.URL, c.Source, content)
			if err := o.store.Insert(ctx, &record); err != nil {
				logger.Error("persist failed", zap.String("url", c.URL), zap.Error(err))
				o.registry.Fail(id, err.Error())
				return
			}
			processed = append(processed, record.Serialize())
		} else {
			logger.Warn("candidate skipped, content too short",
				zap.String("url", c.URL),
				zap.Int("length", utf8.RuneCountInString(content)))
		}

		progress := progressSummaries + (i+1)*(progressSummariesEnd-progressSummaries)/len(unseen)
		o.registry.SetProgress(id, progress,
			fmt.Sprintf("已處理 %d/%d 篇文章", i+1, len(unseen)))
	}

	logger.Info("run complete",
		zap.Int("found", len(candidates)),
		zap.Int("processed", len(processed)))
	o.registry.Complete(id, processed, len(candidates), len(processed),
		fmt.Sprintf("成功處理 %d 篇新文章", len(processed)))
}
