package fetchwork

import "context"

// Cooperative runs the whole batch on a single scheduler thread.
// Every unit becomes a coroutine task whose fetch is its declared
// suspension point: the scheduler parks the task there, hands the
// fetch to the reactor, and interleaves the remaining tasks instead
// of idling. No two tasks ever execute instructions at the same
// time: logical progress is interleaved, not parallel. The batch
// still completes in roughly the slowest fetch's time because many
// units are in flight while suspended.
//
// All units are submitted up front, each running to its suspension
// point before the next is spawned, and the strategy blocks exactly
// once, on the collective fan-in join.
type Cooperative struct{}

// fetchReactor executes suspended units for the scheduler. One
// goroutine per request plays the part of the I/O layer, bounded by
// the scheduler's in-flight semaphore; the suspended task is resumed
// on the scheduler thread when its answer is posted.
type fetchReactor struct{}

func (fetchReactor) dispatch(ctx context.Context, reqs []*ioRequest, sema chan struct{}, resp chan<- *ioBatch) {
	for _, req := range reqs {
		batch := &ioBatch{requests: []*ioRequest{req}}
		go func() {
			sema <- struct{}{}
			defer func() { <-sema }()

			res, err := req.unit.Do(ctx)
			batch.respond(0, ioResult{res: res, err: err})
			resp <- batch
		}()
	}
}

// Run implements Strategy.
func (Cooperative) Run(ctx context.Context, keys []string, fetch Fetch) (*ResultMap, error) {
	if fetch.fn == nil {
		return nil, errNilFetch
	}

	units := NewBatch(keys, fetch)
	rm := NewResultMap()
	var firstErr error

	sched := newScheduler(fetchReactor{})
	sched.run(ctx, func(ctx context.Context, root *task) {
		var wg waitGroup
		wg.add(len(units))

		for _, unit := range units {
			root.spawn(func(ctx context.Context, t *task) {
				defer wg.done()

				out := t.await(unit)
				if out.err != nil {
					if firstErr == nil {
						firstErr = out.err
					}
					return
				}
				// Insertion happens between suspension points on the
				// scheduler thread, so the map needs no lock.
				if err := rm.Add(out.res); err != nil && firstErr == nil {
					firstErr = err
				}
			})
		}

		wg.wait(root)
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return rm, nil
}
