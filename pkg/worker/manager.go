// Package worker runs a bounded number of goroutines over a list of URLs.
//
// It is used only for cheap, independent requests such as HEAD probes; downloads and
// transcriptions stay sequential.
package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ProcessFunc handles one URL
type ProcessFunc func(ctx context.Context, url string) error

// Stats is the outcome of a ProcessURLs call
type Stats struct {
	Succeeded int
	Failed    int
}

// Manager manages workers and distributes URLs to them
type Manager struct {
	workerCount int
	log         *zap.SugaredLogger

	// OnResult, when set, is called from the aggregating goroutine after each URL.
	OnResult func(url string, err error)
}

// NewManager creates a new manager. workerCount below 1 is treated as 1.
func NewManager(workerCount int, logger *zap.SugaredLogger) *Manager {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		workerCount: workerCount,
		log:         logger,
	}
}

// ProcessURLs distributes URLs to workers and processes them concurrently.
//
// Errors for individual URLs are logged and counted; an error is returned only when every URL
// failed, or when ctx was cancelled.
func (m *Manager) ProcessURLs(ctx context.Context, urls []string, fn ProcessFunc) (Stats, error) {
	// Create job channel
	jobChan := make(chan string, len(urls))
	for _, url := range urls {
		jobChan <- url
	}
	close(jobChan)

	var wg sync.WaitGroup

	// Results channel to collect success/error from workers (no contention)
	type result struct {
		url      string
		workerID int
		err      error
	}
	resultsChan := make(chan result, len(urls))

	workers := m.workerCount
	if workers > len(urls) {
		workers = len(urls)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for url := range jobChan {
				if ctx.Err() != nil {
					resultsChan <- result{url: url, workerID: workerID, err: ctx.Err()}
					continue
				}
				resultsChan <- result{url: url, workerID: workerID, err: fn(ctx, url)}
			}
		}(i)
	}

	// Close results channel when all workers finish
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Aggregate results (single goroutine reads from channel)
	var stats Stats
	for res := range resultsChan {
		if res.err == nil {
			stats.Succeeded++
		} else {
			stats.Failed++
			if ctx.Err() == nil {
				m.log.Warnf("Worker %d: error processing %s: %v", res.workerID, res.url, res.err)
			}
		}
		if m.OnResult != nil {
			m.OnResult(res.url, res.err)
		}
	}

	m.log.Debugf("Completed: %d successful, %d errors (total: %d)", stats.Succeeded, stats.Failed, len(urls))

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Failed > 0 && stats.Succeeded == 0 {
		return stats, fmt.Errorf("all %d URLs failed to process", stats.Failed)
	}
	return stats, nil
}
