package thirdparty

import (
	"context"
	"errors"
	"sync"
)

// DefaultParallelDownloads bounds the number of concurrent transfers in Prefetch.
const DefaultParallelDownloads = 4

// DownloadRequest names one file for Prefetch. Targets must be distinct.
type DownloadRequest struct {
	URL    string
	Target string
}

// Prefetch runs EnsureDownloaded for every request, at most jobs at a time
// (0 = DefaultParallelDownloads). It waits for all transfers and returns
// their failures joined; successful downloads are kept.
func (i *Installer) Prefetch(ctx context.Context, reqs []DownloadRequest, force bool, jobs int) error {
	if jobs <= 0 {
		jobs = DefaultParallelDownloads
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, jobs)

	for _, req := range reqs {
		wg.Add(1)
		go func(req DownloadRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if _, err := i.EnsureDownloaded(ctx, req.URL, req.Target, force); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(req)
	}

	wg.Wait()
	return errors.Join(errs...)
}
