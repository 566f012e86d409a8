package fetchwork

import "github.com/gammazero/deque"

// sema parks tasks waiting on a resource and wakes them in FIFO
// order. It is scheduler-internal state: everything runs on the one
// scheduler thread, so there is no atomic machinery, only the wait
// queue.
type sema struct {
	noCopy noCopy
	free   uint32
	wait   deque.Deque[*task]
}

// acquire takes the semaphore for t, parking the task until a release
// wakes it when nothing is free.
func (s *sema) acquire(t *task) {
	if s.free > 0 {
		s.free--
		return
	}

	s.wait.PushBack(t)
	t.norun = true
	t.suspend()
}

// release frees the semaphore, resuming the longest-waiting task if
// there is one.
func (s *sema) release() {
	if s.wait.Len() == 0 {
		return
	}

	s.free++

	t := s.wait.PopFront()
	t.norun = false
	t.runZero()
}
