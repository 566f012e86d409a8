package fetchwork

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FetchFunc is the external collaborator: it fetches one key (here, a
// URL) and reports the payload size and how long the load took. The
// concurrent strategies call it from multiple workers at once, so it
// must be safe for concurrent use and keep no shared mutable state.
type FetchFunc func(ctx context.Context, key string) (size int, elapsed time.Duration, err error)

// Fetch couples a FetchFunc with an optional registry name. Named
// fetches (see Register) can be executed by worker subprocesses;
// anonymous ones run in-process only.
type Fetch struct {
	name string
	fn   FetchFunc
}

// NewFetch wraps fn as an anonymous, in-process-only fetch.
func NewFetch(fn FetchFunc) Fetch {
	return Fetch{fn: fn}
}

// Name returns the registry name, or "" for anonymous fetches.
func (f Fetch) Name() string {
	return f.name
}

var errNilFetch = errors.New("fetchwork: fetch has no function")

// UnitOfWork is one independent task: a key bound to the operation
// that fetches it. Units are immutable, consumed exactly once by
// exactly one worker, and discarded once their result is recorded.
type UnitOfWork struct {
	Key string
	op  func(context.Context) (TaskResult, error)
}

// Do executes the unit's operation.
func (u UnitOfWork) Do(ctx context.Context) (TaskResult, error) {
	return u.op(ctx)
}

// TaskResult is the outcome of one completed unit. It is never
// mutated after creation; ownership transfers to the aggregator.
type TaskResult struct {
	Key     string
	Size    int
	Elapsed time.Duration
}

// NewBatch binds each key to the fetch, preserving input order. Key
// uniqueness is the caller's contract; violations surface as
// ErrDuplicateKey when results are aggregated.
func NewBatch(keys []string, fetch Fetch) []UnitOfWork {
	units := make([]UnitOfWork, len(keys))
	for i, key := range keys {
		units[i] = UnitOfWork{
			Key: key,
			op: func(ctx context.Context) (TaskResult, error) {
				size, elapsed, err := fetch.fn(ctx, key)
				if err != nil {
					return TaskResult{}, fmt.Errorf("fetch %q: %w", key, err)
				}
				return TaskResult{Key: key, Size: size, Elapsed: elapsed}, nil
			},
		}
	}
	return units
}
