package fetchwork

import (
	"context"
	"runtime/trace"

	"github.com/webriots/coro"
)

const (
	taskTraceTaskType   = "fetchwork-batch"
	taskTraceRegionType = "fetchwork-task"
	taskTraceCategory   = "fetchwork"
)

// task is one cooperatively scheduled unit. Tasks execute on the
// scheduler's single thread and never run concurrently: a task gives
// up control only inside await (its declared fetch boundary) or when
// parked by a sema, and resumes when the reactor answers or the sema
// releases it.
type task struct {
	ctx     context.Context
	suspend func() ioResult
	resume  func(ioResult) (struct{}, bool)
	cancel  func()
	ioq     *ioQueue
	parent  *task
	childn  int
	norun   bool
}

func newTask(ctx context.Context, fn func(context.Context, *task), parent *task) *task {
	t := &task{ctx: ctx, parent: parent}

	if parent == nil {
		t.ioq = new(ioQueue)
	} else {
		t.ioq = parent.ioq
		parent.childn++
	}

	resume, cancel := coro.New(
		func(_ func(struct{}) ioResult, suspend func() ioResult) (z struct{}) {
			region := trace.StartRegion(t.ctx, taskTraceRegionType)

			defer func() {
				if t.parent != nil {
					t.parent.childn--
				}
				region.End()
			}()

			t.suspend = suspend
			fn(t.ctx, t)
			return
		},
	)

	t.resume = resume
	t.cancel = cancel
	return t
}

// spawn starts a child task, running it until its first suspension.
// Children share the root's I/O queue; the parent is not resumed
// again until all of its children have completed.
func (t *task) spawn(fn func(context.Context, *task)) {
	child := newTask(t.ctx, fn, t)
	child.log("SPAWN")
	child.resumeZero()
}

// await suspends the task at its fetch boundary. The unit is queued
// for the reactor and the scheduler interleaves other tasks until the
// answer arrives.
func (t *task) await(unit UnitOfWork) ioResult {
	t.log("AWAIT")
	req := &ioRequest{task: t, unit: unit}
	t.ioq.add(req)
	t.norun = true
	return t.suspend()
}

// wait suspends the task until every task it spawned has completed.
func (t *task) wait() {
	t.log("WAIT")
	if t.childn > 0 {
		t.suspend()
	}
}

func (t *task) run(out ioResult) {
	t.log("RUN")

	if _, ok := t.resume(out); ok {
		return
	}

	if t.parent == nil {
		return
	}

	if t.parent.norun {
		return
	}

	if t.parent.childn == 0 {
		t.parent.runZero()
	}
}

func (t *task) resumeZero() bool {
	_, ok := t.resume(ioResult{})
	return ok
}

func (t *task) runZero() {
	t.run(ioResult{})
}

func (t *task) log(msg string) {
	if trace.IsEnabled() {
		trace.Log(t.ctx, taskTraceCategory, msg)
	}
}
