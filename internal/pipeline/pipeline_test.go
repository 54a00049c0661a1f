package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/model"
	"github.com/chiuchau-cyril/heario/internal/store"
	"github.com/chiuchau-cyril/heario/internal/task"
)

type fakeSearcher struct {
	candidates []model.Candidate
	headlines  []model.Candidate
	onSearch   func()
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, _ int) []model.Candidate {
	if f.onSearch != nil {
		f.onSearch()
	}
	return f.candidates
}

func (f *fakeSearcher) Headlines(_ context.Context, _, _ string, _ int) []model.Candidate {
	return f.headlines
}

// fakeFetcher serves canned content; urls absent from the map fail.
type fakeFetcher struct {
	content map[string]string
	calls   atomic.Int64
}

func (f *fakeFetcher) FetchOne(_ context.Context, url string) string {
	f.calls.Add(1)
	return f.content[url]
}

func (f *fakeFetcher) FetchAll(ctx context.Context, urls []string) map[string]string {
	results := make(map[string]string, len(urls))
	for _, u := range urls {
		results[u] = f.FetchOne(ctx, u)
	}
	return results
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, text, _ string, maxLength int) string {
	runes := []rune(text)
	if len(runes) > maxLength {
		runes = runes[:maxLength]
	}
	return "摘要:" + string(runes)
}

type failingStore struct {
	store.Store
}

func (failingStore) Insert(context.Context, *model.NewsRecord) error {
	return assert.AnError
}

type memStore struct {
	byURL map[string]*model.NewsRecord
}

func newMemStore() *memStore {
	return &memStore{byURL: make(map[string]*model.NewsRecord)}
}

func (m *memStore) Insert(_ context.Context, r *model.NewsRecord) error {
	m.byURL[r.URL] = r
	return nil
}

func (m *memStore) Get(_ context.Context, _ uuid.UUID) (*model.NewsRecord, error) {
	return nil, store.ErrNotFound
}

func (m *memStore) FindByURL(_ context.Context, url string) (*model.NewsRecord, error) {
	r, ok := m.byURL[url]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *memStore) FindRecent(_ context.Context, _ int) ([]model.NewsRecord, error) {
	return nil, nil
}

func (m *memStore) FindByTextMatch(_ context.Context, _ string, _ int) ([]model.NewsRecord, error) {
	return nil, nil
}

func newOrchestrator(s Searcher, f *fakeFetcher, st store.Store, reg *task.Registry) *Orchestrator {
	return New(s, f, fakeSummarizer{}, st, reg, zap.NewNop())
}

func TestRun_EndToEnd(t *testing.T) {
	fetchedContent := strings.Repeat("內容充實的新聞本文。", 50) // 500 runes
	description := strings.Repeat("描述文字。", 20)          // 80 runes

	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "文章A", URL: "https://example.com/a", Description: "A desc", Source: "News A"},
		{Title: "文章B", URL: "https://example.com/b", Description: description, Source: "News B"},
	}}
	fetcher := &fakeFetcher{content: map[string]string{
		"https://example.com/a": fetchedContent,
		// b is absent: fetch fails, description takes over.
	}}
	st := newMemStore()
	reg := task.NewRegistry(10)

	final, err := newOrchestrator(searcher, fetcher, st, reg).Run(context.Background(), "testquery", 10)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 2, final.TotalFound)
	assert.Equal(t, 2, final.TotalProcessed)
	require.Len(t, final.Articles, 2)

	recordA, err := st.FindByURL(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Contains(t, recordA.Summary, "內容充實", "A's summary derives from fetched content")
	assert.Equal(t, fetchedContent, recordA.OriginalContent)

	recordB, err := st.FindByURL(context.Background(), "https://example.com/b")
	require.NoError(t, err)
	assert.Contains(t, recordB.Summary, "描述文字", "B's summary derives from the description fallback")
}

func TestRun_Idempotent(t *testing.T) {
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "文章A", URL: "https://example.com/a", Source: "src"},
	}}
	fetcher := &fakeFetcher{content: map[string]string{
		"https://example.com/a": strings.Repeat("新聞本文。", 30),
	}}
	st := newMemStore()
	reg := task.NewRegistry(10)
	o := newOrchestrator(searcher, fetcher, st, reg)

	first, err := o.Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalProcessed)

	second, err := o.Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, second.Status)
	assert.Equal(t, 0, second.TotalProcessed, "second run persists nothing new")
	assert.Equal(t, 1, second.TotalFound)
	require.Len(t, second.Articles, 1, "existing matches come back serialized")
	assert.Equal(t, "https://example.com/a", second.Articles[0].URL)
	assert.Len(t, st.byURL, 1)
}

func TestRun_NoCandidates(t *testing.T) {
	reg := task.NewRegistry(10)
	o := newOrchestrator(&fakeSearcher{}, &fakeFetcher{}, newMemStore(), reg)

	final, err := o.Run(context.Background(), "nothing", 10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Empty(t, final.Articles)
	assert.Equal(t, 0, final.TotalFound)
}

func TestRun_SkipsTinyContent(t *testing.T) {
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "瘦文章", URL: "https://example.com/thin", Description: "太短"},
	}}
	st := newMemStore()
	reg := task.NewRegistry(10)

	final, err := newOrchestrator(searcher, &fakeFetcher{}, st, reg).Run(context.Background(), "q", 10)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 0, final.TotalProcessed)
	assert.Empty(t, st.byURL)
}

func TestRun_CancellationStopsBeforeFetch(t *testing.T) {
	reg := task.NewRegistry(10)
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "文章A", URL: "https://example.com/a", Description: strings.Repeat("描述。", 30)},
	}}
	// Cancel while the search stage is still running; the orchestrator
	// must observe it at the next stage boundary.
	searcher.onSearch = func() {
		for _, tk := range reg.List() {
			require.NoError(t, reg.Cancel(tk.ID))
		}
	}
	fetcher := &fakeFetcher{content: map[string]string{}}
	st := newMemStore()

	final, err := newOrchestrator(searcher, fetcher, st, reg).Run(context.Background(), "q", 10)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, final.Status)
	assert.EqualValues(t, 0, fetcher.calls.Load(), "no fetch may start after cancellation")
	assert.Empty(t, st.byURL)
}

func TestRun_StoreFailureBecomesTaskError(t *testing.T) {
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "文章A", URL: "https://example.com/a", Description: strings.Repeat("描述。", 30)},
	}}
	reg := task.NewRegistry(10)
	o := newOrchestrator(searcher, &fakeFetcher{}, failingStore{newMemStore()}, reg)

	final, err := o.Run(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Equal(t, model.StatusError, final.Status)
	assert.NotEmpty(t, final.Error)
}

func TestRunHeadlines_UsesHeadlinesProvider(t *testing.T) {
	searcher := &fakeSearcher{headlines: []model.Candidate{
		{Title: "頭條", URL: "https://example.com/h", Description: strings.Repeat("頭條內容。", 20)},
	}}
	st := newMemStore()
	reg := task.NewRegistry(10)

	final, err := newOrchestrator(searcher, &fakeFetcher{}, st, reg).
		RunHeadlines(context.Background(), "hk", "", 5)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 1, final.TotalProcessed)
	assert.Equal(t, "headlines:hk", final.Query)
}

type fakeFeed struct {
	items   []model.Candidate
	lastURL string
}

func (f *fakeFeed) Fetch(_ context.Context, feedURL string) []model.Candidate {
	f.lastURL = feedURL
	return f.items
}

func TestRunFeed_ProcessesFeedItems(t *testing.T) {
	feed := &fakeFeed{items: []model.Candidate{
		{Title: "訂閱文章", URL: "https://example.com/rss-a", Description: strings.Repeat("訂閱內容。", 20)},
	}}
	st := newMemStore()
	reg := task.NewRegistry(10)

	final, err := newOrchestrator(&fakeSearcher{}, &fakeFetcher{}, st, reg).
		RunFeed(context.Background(), feed, "https://example.com/feed.xml")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/feed.xml", feed.lastURL)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 1, final.TotalProcessed)
	assert.Equal(t, "feed:https://example.com/feed.xml", final.Query)

	_, err = st.FindByURL(context.Background(), "https://example.com/rss-a")
	assert.NoError(t, err)
}

func TestStart_BackgroundRunIsPollable(t *testing.T) {
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{Title: "文章A", URL: "https://example.com/a", Description: strings.Repeat("描述。", 30)},
	}}
	reg := task.NewRegistry(10)
	o := newOrchestrator(searcher, &fakeFetcher{}, newMemStore(), reg)

	id := o.Start(context.Background(), "q", 10)

	require.Eventually(t, func() bool {
		got, err := reg.Get(id)
		return err == nil && got.Status == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	final, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 1, final.TotalProcessed)
}
