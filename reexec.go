package fetchwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// workerEnv marks a process as a fetch worker; its value names the
// registered fetch the worker executes.
const workerEnv = "FETCHWORK_WORKER"

// ErrUnregisteredFetch reports a process strategy given an anonymous
// fetch. Worker subprocesses cannot receive Go closures; they look
// the fetch up by its registered name after re-exec.
var ErrUnregisteredFetch = errors.New("fetchwork: process strategies require a registered fetch")

var registry struct {
	mu sync.Mutex
	m  map[string]FetchFunc
}

// Register names a fetch so that worker subprocesses can find it.
// Registration must happen before Init in every binary that uses a
// process strategy, so package-level registration is the usual form.
// Registering a name twice panics.
func Register(name string, fn FetchFunc) Fetch {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.m == nil {
		registry.m = make(map[string]FetchFunc)
	}
	if _, ok := registry.m[name]; ok {
		panic(fmt.Sprintf("fetchwork: fetch %q registered twice", name))
	}
	registry.m[name] = fn
	return Fetch{name: name, fn: fn}
}

func registered(name string) (FetchFunc, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	fn, ok := registry.m[name]
	return fn, ok
}

// Init runs the worker loop when the current process was spawned by
// ProcessPool, and reports whether it did. Call it at the top of main
// (or TestMain), after fetches are registered:
//
//	if fetchwork.Init() {
//		return
//	}
//
// The loop serves requests from stdin until EOF, executing each with
// the registered fetch and replying on stdout.
func Init() bool {
	name := os.Getenv(workerEnv)
	if name == "" {
		return false
	}
	if err := workerLoop(name, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fetchwork worker:", err)
		os.Exit(1)
	}
	return true
}

func workerLoop(name string, in io.Reader, out io.Writer) error {
	fn, ok := registered(name)
	if !ok {
		return fmt.Errorf("fetch %q not registered", name)
	}

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	for {
		var req workRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		rep := workReply{Seq: req.Seq, Key: req.Key}
		size, elapsed, err := fn(context.Background(), req.Key)
		if err != nil {
			rep.Err = err.Error()
		} else {
			rep.Size = size
			rep.ElapsedNS = int64(elapsed)
		}
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}
