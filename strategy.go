package fetchwork

import "context"

// Strategy executes one batch of units and aggregates the results.
// The four implementations are interchangeable: for the same keys and
// a deterministic fetch they produce the same final map content, and
// differ only in mechanics, timing, and iteration order.
//
// Failure policy, uniform across strategies: the first fetch failure
// aborts the run and propagates to the caller with no partial map.
// There is no cancellation; a strategy still joins and tears down
// every worker it started before returning the error.
type Strategy interface {
	Run(ctx context.Context, keys []string, fetch Fetch) (*ResultMap, error)
}

// Sequential runs the batch one unit at a time on the calling
// goroutine, inserting each result before starting the next. The
// produced map iterates in batch order and total wall-clock time is
// the sum of the individual fetches. It is the correctness baseline
// the concurrent strategies are checked against.
type Sequential struct{}

// Run implements Strategy.
func (Sequential) Run(ctx context.Context, keys []string, fetch Fetch) (*ResultMap, error) {
	if fetch.fn == nil {
		return nil, errNilFetch
	}

	rm := NewResultMap()
	for _, unit := range NewBatch(keys, fetch) {
		res, err := unit.Do(ctx)
		if err != nil {
			return nil, err
		}
		if err := rm.Add(res); err != nil {
			return nil, err
		}
	}
	return rm, nil
}
