package fetchwork

import (
	"context"
	"runtime/trace"
)

// schedulerIOLimit caps the number of fetches the reactor has in
// flight at once.
const schedulerIOLimit = 128

// ioRequest is one suspended unit awaiting the reactor.
type ioRequest struct {
	task *task
	unit UnitOfWork
}

// ioResult is the reactor's answer: the completed unit's result or
// its failure.
type ioResult struct {
	res TaskResult
	err error
}

type ioResponse struct {
	req *ioRequest
	out ioResult
}

// ioBatch pairs requests handed to the reactor with the responses it
// produced. Every request must be answered exactly once.
type ioBatch struct {
	requests  []*ioRequest
	responses []*ioResponse
}

func (b *ioBatch) respond(i int, out ioResult) {
	b.responses = append(b.responses, &ioResponse{req: b.requests[i], out: out})
}

func (b *ioBatch) validate() {
	if len(b.requests) != len(b.responses) {
		panic("fetchwork: reactor answered a partial batch")
	}
}

type ioQueue struct {
	requests []*ioRequest
}

func (q *ioQueue) add(reqs ...*ioRequest) {
	q.requests = append(q.requests, reqs...)
}

func (q *ioQueue) reset() {
	q.requests = nil
}

func (q *ioQueue) len() int {
	return len(q.requests)
}

// reactor executes suspended units off the scheduler thread and posts
// each answered batch to resp. It is the only place fetch bodies run
// while the Cooperative strategy is in charge; task code never
// overlaps with other task code.
type reactor interface {
	dispatch(ctx context.Context, reqs []*ioRequest, sema chan struct{}, resp chan<- *ioBatch)
}

// scheduler interleaves coroutine tasks on a single OS thread,
// suspending them at their fetch boundaries and resuming them as the
// reactor answers.
type scheduler struct {
	reactor   reactor
	responses chan *ioBatch
	sema      chan struct{}
}

func newScheduler(r reactor) *scheduler {
	return &scheduler{
		reactor:   r,
		responses: make(chan *ioBatch, schedulerIOLimit),
		sema:      make(chan struct{}, schedulerIOLimit),
	}
}

// run executes fn as the root task and blocks until it and every task
// it spawned have completed. This is the orchestrator's single wait:
// the loop alternates between handing queued requests to the reactor
// and resuming whichever tasks the arriving answers unblock.
func (s *scheduler) run(ctx context.Context, fn func(context.Context, *task)) {
	ctx, tracer := trace.NewTask(ctx, taskTraceTaskType)
	defer tracer.End()

	program := func(ctx context.Context, t *task) {
		fn(ctx, t)
		t.wait()
	}

	root := newTask(ctx, program, nil)
	defer root.cancel()

	for root.resumeZero() {
		for pending := 0; root.ioq.len() > 0 || pending > 0; {
			if root.ioq.len() > 0 {
				s.reactor.dispatch(ctx, root.ioq.requests, s.sema, s.responses)
			}
			pending += root.ioq.len()
			root.ioq.reset()

			batch := <-s.responses
		again:
			batch.validate()
			pending -= len(batch.requests)

			for _, resp := range batch.responses {
				t := resp.req.task
				t.norun = false
				t.run(resp.out)
			}

			select {
			case batch = <-s.responses:
				goto again
			default:
			}
		}
	}

	if root.childn > 0 {
		panic("fetchwork: scheduler exited with live child tasks")
	}
}
