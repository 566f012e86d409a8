// Package fetchwork executes one batch of independent, I/O-bound
// fetch operations under interchangeable concurrency strategies and
// aggregates the per-operation outcomes into a single
// insertion-ordered map. The batch and the fetch itself are supplied
// by the caller; the package never inspects payloads, it only
// orchestrates opaque units of work.
//
// Key components:
//
//   - UnitOfWork / TaskResult: the shape of one task, an identifying
//     key bound to an operation that reports payload size and load
//     time.
//
//   - Strategy: the contract shared by the four execution backends.
//     Sequential runs units in order on the calling goroutine.
//     ProcessPool fans out to worker OS processes over a pipe queue.
//     ThreadPool fans out to workers pinned to OS threads.
//     Cooperative interleaves coroutine tasks on one scheduler
//     thread, suspending each at its fetch boundary.
//
//   - ResultMap: the aggregator. Insertion-ordered, rejects duplicate
//     keys instead of overwriting.
//
//   - Register / Init: the re-exec hook that lets worker subprocesses
//     find the caller's fetch by name, since closures cannot cross a
//     process boundary.
//
//   - SharedCounter: a mutual-exclusion demonstration, with OS-thread
//     workers incrementing a jointly owned counter behind nested
//     locks in a fixed acquisition order.
package fetchwork
