package fetchwork

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMain doubles as the entry point for worker subprocesses: the
// process strategies re-exec this test binary, and Init diverts those
// children into the worker loop.
func TestMain(m *testing.M) {
	if Init() {
		return
	}
	os.Exit(m.Run())
}

// Registered at package level so worker subprocesses resolve them
// before Init runs.
var (
	stubFetch = Register("stub", func(_ context.Context, key string) (int, time.Duration, error) {
		return len(key), 0, nil
	})

	failFetch = Register("fail", func(_ context.Context, key string) (int, time.Duration, error) {
		if key == "boom" {
			return 0, 0, errors.New("boom")
		}
		return len(key), 0, nil
	})

	slowFetch = Register("slow", func(_ context.Context, key string) (int, time.Duration, error) {
		time.Sleep(50 * time.Millisecond)
		return len(key), 0, nil
	})
)

func strategies() map[string]Strategy {
	return map[string]Strategy{
		"sequential":           Sequential{},
		"process-per-unit":     ProcessPool{},
		"process-pool":         ProcessPool{Workers: 2},
		"process-pool-ordered": ProcessPool{Workers: 2, Ordered: true},
		"threads":              ThreadPool{Workers: 4},
		"coop":                 Cooperative{},
	}
}

func TestStrategiesAgree(t *testing.T) {
	keys := []string{"a", "bb", "ccc"}

	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			rm, err := s.Run(context.Background(), keys, stubFetch)
			r.NoError(err)
			r.Equal(len(keys), rm.Len())

			for _, key := range keys {
				res, ok := rm.Get(key)
				r.True(ok, "missing key %q", key)
				r.Equal(len(key), res.Size)
			}
		})
	}
}

func TestSequentialPreservesBatchOrder(t *testing.T) {
	r := require.New(t)

	keys := []string{"ccc", "a", "bb", "dddd"}
	rm, err := Sequential{}.Run(context.Background(), keys, stubFetch)
	r.NoError(err)
	r.Equal(keys, rm.Keys())
}

func TestProcessPoolOrderedMode(t *testing.T) {
	r := require.New(t)

	keys := []string{"ccc", "a", "bb", "dddd", "ee"}
	rm, err := ProcessPool{Workers: 3, Ordered: true}.Run(context.Background(), keys, stubFetch)
	r.NoError(err)
	r.Equal(keys, rm.Keys())
}

func TestDuplicateKeyRejected(t *testing.T) {
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			rm, err := s.Run(context.Background(), []string{"a", "a"}, stubFetch)
			r.ErrorIs(err, ErrDuplicateKey)
			r.Nil(rm)
		})
	}
}

func TestFetchFailureAbortsRun(t *testing.T) {
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			rm, err := s.Run(context.Background(), []string{"a", "boom", "ccc"}, failFetch)
			r.Error(err)
			r.Contains(err.Error(), "boom")
			r.Nil(rm)
		})
	}
}

func TestRunsAreIdempotent(t *testing.T) {
	keys := []string{"a", "bb", "ccc", "dddd"}

	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			first, err := s.Run(context.Background(), keys, stubFetch)
			r.NoError(err)
			second, err := s.Run(context.Background(), keys, stubFetch)
			r.NoError(err)

			r.Equal(first.Len(), second.Len())
			for key, res := range first.All() {
				again, ok := second.Get(key)
				r.True(ok)
				r.Equal(res.Size, again.Size)
			}
		})
	}
}

func TestNilFetchRejected(t *testing.T) {
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			rm, err := s.Run(context.Background(), []string{"a"}, Fetch{})
			r.Error(err)
			r.Nil(rm)
		})
	}
}

func TestEmptyBatch(t *testing.T) {
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			rm, err := s.Run(context.Background(), nil, stubFetch)
			r.NoError(err)
			r.Equal(0, rm.Len())
		})
	}
}

// Concurrent strategies should take roughly the slowest fetch, not
// the sum. Eight 50ms fetches run sequentially take 400ms; the bound
// leaves generous slack for scheduling noise.
func TestConcurrentWallClock(t *testing.T) {
	keys := []string{"a", "bb", "ccc", "dddd", "e", "ff", "ggg", "hhhh"}

	for _, tc := range []struct {
		name string
		s    Strategy
	}{
		{"threads", ThreadPool{Workers: 8}},
		{"coop", Cooperative{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			start := time.Now()
			rm, err := tc.s.Run(context.Background(), keys, slowFetch)
			elapsed := time.Since(start)

			r.NoError(err)
			r.Equal(len(keys), rm.Len())
			r.Less(elapsed, 300*time.Millisecond)
		})
	}
}
