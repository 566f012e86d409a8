package fetchwork

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResultMapInsertionOrder(t *testing.T) {
	r := require.New(t)

	rm := NewResultMap()
	r.NoError(rm.Add(TaskResult{Key: "bb", Size: 2}))
	r.NoError(rm.Add(TaskResult{Key: "a", Size: 1, Elapsed: time.Second}))
	r.NoError(rm.Add(TaskResult{Key: "ccc", Size: 3}))

	r.Equal([]string{"bb", "a", "ccc"}, rm.Keys())
	r.Equal(3, rm.Len())

	var got []string
	for key, res := range rm.All() {
		got = append(got, key)
		r.Equal(len(key), res.Size)
	}
	r.Equal([]string{"bb", "a", "ccc"}, got)

	res, ok := rm.Get("a")
	r.True(ok)
	r.Equal(Result{Size: 1, Elapsed: time.Second}, res)

	_, ok = rm.Get("zz")
	r.False(ok)
}

func TestResultMapRejectsDuplicates(t *testing.T) {
	r := require.New(t)

	rm := NewResultMap()
	r.NoError(rm.Add(TaskResult{Key: "a", Size: 1}))

	err := rm.Add(TaskResult{Key: "a", Size: 99})
	r.ErrorIs(err, ErrDuplicateKey)
	r.Contains(err.Error(), `"a"`)

	// The original entry survives.
	r.Equal(1, rm.Len())
	res, ok := rm.Get("a")
	r.True(ok)
	r.Equal(1, res.Size)
}

func TestResultMapString(t *testing.T) {
	r := require.New(t)

	rm := NewResultMap()
	r.NoError(rm.Add(TaskResult{Key: "a", Size: 1}))
	r.NoError(rm.Add(TaskResult{Key: "bb", Size: 2}))

	r.Equal("{a: (1, 0s), bb: (2, 0s)}", rm.String())
}
