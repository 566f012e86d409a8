package fetchwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"golang.org/x/sync/errgroup"
)

// workRequest and workReply form the pipe protocol between the parent
// and its worker processes: one JSON object per line, requests on a
// worker's stdin, replies on its stdout. Seq is the submission index;
// it survives the round trip so the parent can rebuild submission
// order in ordered mode.
type workRequest struct {
	Seq int    `json:"seq"`
	Key string `json:"key"`
}

type workReply struct {
	Seq       int    `json:"seq"`
	Key       string `json:"key"`
	Size      int    `json:"size"`
	ElapsedNS int64  `json:"elapsed_ns"`
	Err       string `json:"err,omitempty"`
}

// ProcessPool fans the batch out to worker OS processes. Each worker
// is this executable re-exec'd in worker mode (see Init) with its own
// private memory, so there is no shared-memory race risk; the only
// shared resources are the pipe queues. The parent starts the
// workers, waits for every one to terminate, drains the replies, and
// builds the map.
//
// The fetch must be a registered one: closures cannot cross the
// process boundary, so workers look the fetch up by name.
type ProcessPool struct {
	// Workers is the number of reusable worker processes consuming the
	// shared queue of pending units. Zero or negative spawns one
	// short-lived process per unit instead.
	Workers int

	// Ordered selects ordered-by-submission aggregation: the final map
	// iterates in batch order, as if submitted with a bulk ordered map
	// call. The default is unordered-as-completed. Both modes produce
	// the same final map content.
	Ordered bool
}

// Run implements Strategy.
func (p ProcessPool) Run(ctx context.Context, keys []string, fetch Fetch) (*ResultMap, error) {
	if fetch.fn == nil {
		return nil, errNilFetch
	}
	if fetch.name == "" {
		return nil, ErrUnregisteredFetch
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate worker executable: %w", err)
	}

	var replies []workReply
	if p.Workers <= 0 {
		replies, err = runPerUnit(ctx, exe, fetch.name, keys)
	} else {
		replies, err = runPooled(ctx, exe, fetch.name, keys, p.Workers)
	}
	if err != nil {
		return nil, err
	}

	if p.Ordered {
		slices.SortFunc(replies, func(a, b workReply) int { return a.Seq - b.Seq })
	}

	// Abort-all: surface the earliest-submitted failure so the error
	// does not depend on completion order.
	if rep, failed := firstFailure(replies); failed {
		return nil, fmt.Errorf("fetch %q: %s", rep.Key, rep.Err)
	}

	rm := NewResultMap()
	for _, rep := range replies {
		res := TaskResult{Key: rep.Key, Size: rep.Size, Elapsed: time.Duration(rep.ElapsedNS)}
		if err := rm.Add(res); err != nil {
			return nil, err
		}
	}
	return rm, nil
}

func firstFailure(replies []workReply) (workReply, bool) {
	failed := workReply{Seq: -1}
	for _, rep := range replies {
		if rep.Err != "" && (failed.Seq < 0 || rep.Seq < failed.Seq) {
			failed = rep
		}
	}
	return failed, failed.Seq >= 0
}

// runPerUnit spawns one short-lived worker per unit: start them all,
// wait for every one to terminate, then drain the reply queue. Reply
// order is completion order.
func runPerUnit(ctx context.Context, exe, fetchName string, keys []string) ([]workReply, error) {
	replies := make(chan workReply, len(keys))

	var g errgroup.Group
	var spawnErr error
	for i, key := range keys {
		w, err := startWorker(ctx, exe, fetchName)
		if err != nil {
			spawnErr = err
			break
		}
		req := workRequest{Seq: i, Key: key}
		g.Go(func() error {
			rep, err := w.roundTrip(req)
			if err != nil {
				_ = w.shutdown()
				return err
			}
			replies <- rep
			return w.shutdown()
		})
	}

	// Every worker that started is joined, even when a later spawn
	// failed; no dangling processes survive the call.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if spawnErr != nil {
		return nil, spawnErr
	}
	return drain(replies), nil
}

// runPooled starts a fixed pool of reusable workers that pop pending
// units off one shared queue until it is empty, then exit on stdin
// EOF.
func runPooled(ctx context.Context, exe, fetchName string, keys []string, size int) ([]workReply, error) {
	var (
		mu      sync.Mutex
		pending deque.Deque[workRequest]
	)
	for i, key := range keys {
		pending.PushBack(workRequest{Seq: i, Key: key})
	}
	next := func() (workRequest, bool) {
		mu.Lock()
		defer mu.Unlock()
		if pending.Len() == 0 {
			return workRequest{}, false
		}
		return pending.PopFront(), true
	}

	replies := make(chan workReply, len(keys))
	var g errgroup.Group
	var spawnErr error
	for range min(size, len(keys)) {
		w, err := startWorker(ctx, exe, fetchName)
		if err != nil {
			spawnErr = err
			break
		}
		g.Go(func() error {
			for {
				req, ok := next()
				if !ok {
					return w.shutdown()
				}
				rep, err := w.roundTrip(req)
				if err != nil {
					_ = w.shutdown()
					return err
				}
				replies <- rep
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if spawnErr != nil {
		return nil, spawnErr
	}
	return drain(replies), nil
}

func drain(replies chan workReply) []workReply {
	close(replies)
	drained := make([]workReply, 0, cap(replies))
	for rep := range replies {
		drained = append(drained, rep)
	}
	return drained
}

// procWorker is the parent's handle on one worker process.
type procWorker struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	enc *json.Encoder
	dec *json.Decoder
}

func startWorker(ctx context.Context, exe, fetchName string) (*procWorker, error) {
	cmd := exec.CommandContext(ctx, exe)
	cmd.Env = append(os.Environ(), workerEnv+"="+fetchName)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn worker: %w", err)
	}
	return &procWorker{
		cmd: cmd,
		in:  in,
		enc: json.NewEncoder(in),
		dec: json.NewDecoder(out),
	}, nil
}

// roundTrip submits one request and blocks for its reply. Workers
// answer strictly in request order, one at a time.
func (w *procWorker) roundTrip(req workRequest) (workReply, error) {
	if err := w.enc.Encode(req); err != nil {
		return workReply{}, fmt.Errorf("submit to worker: %w", err)
	}
	var rep workReply
	if err := w.dec.Decode(&rep); err != nil {
		return workReply{}, fmt.Errorf("read worker reply: %w", err)
	}
	return rep, nil
}

// shutdown closes the worker's stdin, which ends its loop, and reaps
// the process.
func (w *procWorker) shutdown() error {
	_ = w.in.Close()
	return w.cmd.Wait()
}
