package fetchwork

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerLoopServesRequests(t *testing.T) {
	r := require.New(t)

	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	r.NoError(enc.Encode(workRequest{Seq: 0, Key: "aa"}))
	r.NoError(enc.Encode(workRequest{Seq: 1, Key: "boom"}))

	var out bytes.Buffer
	r.NoError(workerLoop("fail", &in, &out))

	dec := json.NewDecoder(&out)
	var first, second workReply
	r.NoError(dec.Decode(&first))
	r.NoError(dec.Decode(&second))

	r.Equal(workReply{Seq: 0, Key: "aa", Size: 2}, first)
	r.Equal(1, second.Seq)
	r.Equal("boom", second.Key)
	r.Equal("boom", second.Err)
	r.Equal(0, second.Size)
}

func TestWorkerLoopUnknownFetch(t *testing.T) {
	r := require.New(t)

	err := workerLoop("no-such-fetch", strings.NewReader(""), io.Discard)
	r.Error(err)
	r.Contains(err.Error(), "no-such-fetch")
}

func TestProcessPoolRequiresRegisteredFetch(t *testing.T) {
	r := require.New(t)

	anon := NewFetch(func(_ context.Context, key string) (int, time.Duration, error) {
		return len(key), 0, nil
	})
	rm, err := ProcessPool{}.Run(context.Background(), []string{"a"}, anon)
	r.ErrorIs(err, ErrUnregisteredFetch)
	r.Nil(rm)
}
