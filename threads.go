package fetchwork

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ThreadPool fans the batch out to a fixed pool of workers pinned to
// OS threads. Workers share the process's memory; the only shared
// resources are the job and completion channels, so the fetch must be
// safe to call concurrently. Results are fanned back in over a
// channel and aggregated by a single goroutine after the pool is
// joined, so the map itself needs no lock. Completion order is
// non-deterministic; wall-clock time approaches the slowest fetch,
// bounded by the pool size.
type ThreadPool struct {
	// Workers is the pool size. Zero or negative means runtime.NumCPU.
	Workers int
}

// Run implements Strategy.
func (p ThreadPool) Run(ctx context.Context, keys []string, fetch Fetch) (*ResultMap, error) {
	if fetch.fn == nil {
		return nil, errNilFetch
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	units := NewBatch(keys, fetch)
	jobs := make(chan UnitOfWork, len(units))
	for _, unit := range units {
		jobs <- unit
	}
	close(jobs)

	completions := make(chan TaskResult, len(units))
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			for unit := range jobs {
				res, err := unit.Do(ctx)
				if err != nil {
					return err
				}
				completions <- res
			}
			return nil
		})
	}

	// The whole pool is joined before Run returns, error or not.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(completions)

	rm := NewResultMap()
	for res := range completions {
		if err := rm.Add(res); err != nil {
			return nil, err
		}
	}
	return rm, nil
}
