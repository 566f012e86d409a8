package fetchwork

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// ErrDuplicateKey reports a batch whose keys are not unique. It is a
// caller contract violation, distinct from a failed fetch: the
// aggregator never silently overwrites an existing entry.
var ErrDuplicateKey = errors.New("fetchwork: duplicate key")

// Result is the recorded measurement for one key.
type Result struct {
	Size    int
	Elapsed time.Duration
}

// ResultMap maps keys to results, preserving insertion order. The
// sequential strategy inserts in batch order; the concurrent ones
// insert in completion order (or submission order, for the ordered
// process-pool mode), so iteration order is only guaranteed for
// Sequential. The final map always holds one entry per completed
// unit.
//
// ResultMap is not safe for concurrent use. Strategies serialize
// aggregation: either a single goroutine inserts after the pool is
// joined, or insertion happens on the one scheduler thread.
type ResultMap struct {
	keys []string
	m    map[string]Result
}

// NewResultMap returns an empty map.
func NewResultMap() *ResultMap {
	return &ResultMap{m: make(map[string]Result)}
}

// Add records one completed task. Adding a key twice fails with
// ErrDuplicateKey and leaves the map unchanged.
func (r *ResultMap) Add(res TaskResult) error {
	if _, ok := r.m[res.Key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, res.Key)
	}
	r.keys = append(r.keys, res.Key)
	r.m[res.Key] = Result{Size: res.Size, Elapsed: res.Elapsed}
	return nil
}

// Get returns the result recorded for key.
func (r *ResultMap) Get(key string) (Result, bool) {
	res, ok := r.m[key]
	return res, ok
}

// Len returns the number of recorded entries.
func (r *ResultMap) Len() int {
	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *ResultMap) Keys() []string {
	return slices.Clone(r.keys)
}

// All iterates over entries in insertion order.
func (r *ResultMap) All() iter.Seq2[string, Result] {
	return func(yield func(string, Result) bool) {
		for _, key := range r.keys {
			if !yield(key, r.m[key]) {
				return
			}
		}
	}
}

func (r *ResultMap) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		res := r.m[key]
		fmt.Fprintf(&sb, "%s: (%d, %v)", key, res.Size, res.Elapsed)
	}
	sb.WriteByte('}')
	return sb.String()
}
