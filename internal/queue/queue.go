// Package queue implements the queue-manager interface from spec §4.3:
// the per-worker FIFO policy (default) and a single global queue policy
// with a pluggable comparator and idle-worker selector.
package queue

import (
	"github.com/cyw0ng95/recodex-broker/internal/request"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

// Manager owns assignment policy for requests against registered
// workers: at most one in-flight request per worker plus a FIFO of
// pending ones.
type Manager interface {
	// AddWorker installs bookkeeping for a newly registered worker,
	// optionally seeded with the request it is already processing.
	AddWorker(w *workerpool.Worker, current *request.Request)
	// EnqueueRequest attempts to assign req to a capable worker,
	// queuing it if the worker is busy. assigned is non-nil only when
	// the request was handed straight to a previously-idle worker.
	EnqueueRequest(req *request.Request) (assigned *workerpool.Worker, enqueued bool)
	// WorkerFinished clears the worker's current request and, if its
	// queue is non-empty, promotes the next request to current.
	WorkerFinished(w *workerpool.Worker) *request.Request
	// WorkerCancelled clears and returns the worker's current request
	// without assigning a replacement.
	WorkerCancelled(w *workerpool.Worker) *request.Request
	// WorkerTerminated returns every request owned by the worker (its
	// current request followed by its queue) and erases all state for
	// it.
	WorkerTerminated(w *workerpool.Worker) []*request.Request
	// QueuedRequestCount sums the length of every worker's pending
	// queue.
	QueuedRequestCount() int
}
