package fetchwork

import (
	"fmt"
	"io"
	"runtime"
	"sync"
)

// SharedCounter demonstrates mutual exclusion across OS threads: a
// jointly owned integer behind a counter lock, and an output stream
// behind an output lock, so concurrent prints never interleave
// character by character.
//
// The acquisition order is fixed: counter lock first, output lock
// nested inside it. increment is the only place both locks are taken,
// so no caller can ever acquire them in the reverse order.
type SharedCounter struct {
	mu    sync.Mutex // guards value; the outer lock
	out   sync.Mutex // guards w; the inner lock
	value int
	w     io.Writer
}

// NewSharedCounter returns a counter whose workers print to w.
func NewSharedCounter(w io.Writer) *SharedCounter {
	return &SharedCounter{w: w}
}

// Value returns the current counter value.
func (c *SharedCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// increment updates the counter and prints the new value while still
// holding the counter lock. Each printed value is therefore unique,
// and the printed sequence is strictly increasing even though which
// worker produces which value is not deterministic.
func (c *SharedCounter) increment() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value++
	c.print("counter = %d", c.value)
}

// print writes one whole line under the output lock alone.
func (c *SharedCounter) print(format string, args ...any) {
	c.out.Lock()
	defer c.out.Unlock()

	fmt.Fprintf(c.w, format+"\n", args...)
}

// Run starts workers OS threads that each increment the counter
// exactly once, and blocks until all of them have finished. The
// "starting threads" line is fully printed before any worker may run,
// and "done!" prints only after the join barrier, so the final value
// it follows always equals workers.
func (c *SharedCounter) Run(workers int) int {
	c.print("starting threads")

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			c.increment()
		}()
	}
	wg.Wait()

	c.print("done!")
	return c.Value()
}
