package fetcher

import (
	"context"
	"sync"
)

// PoolFetcher fans FetchAll out over a fixed pool of worker goroutines.
type PoolFetcher struct {
	*Client
	workers int
}

var _ ContentFetcher = (*PoolFetcher)(nil)

// NewPoolFetcher builds a worker-pool fetcher on top of a Client.
func NewPoolFetcher(client *Client, workers int) *PoolFetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &PoolFetcher{Client: client, workers: workers}
}

// FetchAll fetches every url on the pool. Each url's outcome is
// independent; the result always holds exactly the input key set.
func (f *PoolFetcher) FetchAll(ctx context.Context, urls []string) map[string]string {
	results := make(map[string]string, len(urls))
	if len(urls) == 0 {
		return results
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := f.workers
	if workers > len(urls) {
		workers = len(urls)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range jobs {
				content := f.FetchOne(ctx, url)
				mu.Lock()
				results[url] = content
				mu.Unlock()
			}
		}()
	}

	for _, url := range urls {
		jobs <- url
	}
	close(jobs)
	wg.Wait()

	return results
}
