package queue

import (
	"github.com/cyw0ng95/recodex-broker/internal/request"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

// PerWorkerManager is the default queue policy: each worker owns at most
// one in-flight request and a private FIFO of pending ones. It keeps a
// ring of known workers (worker_ring in spec §4.3) so that
// EnqueueRequest can scan for the first capable worker and rotate it to
// the tail on assignment, mirroring the registry's own fairness rule.
//
// The per-worker state itself (current request + FIFO) lives on
// *workerpool.Worker, so this type is a thin policy wrapper around the
// worker's own Enqueue/NextRequest/CompleteRequest/Terminate operations
// rather than a second, independent store — avoiding two sources of
// truth for what a worker is holding.
type PerWorkerManager struct {
	ring []*workerpool.Worker
}

// NewPerWorkerManager returns an empty per-worker FIFO queue manager.
func NewPerWorkerManager() *PerWorkerManager {
	return &PerWorkerManager{}
}

// AddWorker installs w at the front of the ring. If current is supplied
// the worker is already processing it (the caller is responsible for
// having set that on the worker itself).
func (m *PerWorkerManager) AddWorker(w *workerpool.Worker, current *request.Request) {
	m.ring = append([]*workerpool.Worker{w}, m.ring...)
}

// EnqueueRequest scans the ring in order for the first worker that
// accepts req's headers. If found, the worker is moved to the ring's
// tail (fairness) and the request is either assigned directly (worker
// idle) or appended to the worker's queue (worker busy).
func (m *PerWorkerManager) EnqueueRequest(req *request.Request) (*workerpool.Worker, bool) {
	for i, w := range m.ring {
		if !w.CheckHeaders(req.Headers) {
			continue
		}
		m.ring = append(append(m.ring[:i:i], m.ring[i+1:]...), w)

		w.Enqueue(req)
		if w.NextRequest() {
			return w, true
		}
		return nil, true
	}
	return nil, false
}

// WorkerFinished clears w's current request and promotes the next
// queued one, if any.
func (m *PerWorkerManager) WorkerFinished(w *workerpool.Worker) *request.Request {
	w.CompleteRequest()
	if w.NextRequest() {
		return w.Current()
	}
	return nil
}

// WorkerCancelled takes and clears w's current request without
// assigning a replacement.
func (m *PerWorkerManager) WorkerCancelled(w *workerpool.Worker) *request.Request {
	current := w.Current()
	w.CompleteRequest()
	return current
}

// WorkerTerminated returns every request owned by w and removes it from
// the ring.
func (m *PerWorkerManager) WorkerTerminated(w *workerpool.Worker) []*request.Request {
	requests := w.Terminate()
	for i, candidate := range m.ring {
		if candidate == w {
			m.ring = append(m.ring[:i], m.ring[i+1:]...)
			break
		}
	}
	return requests
}

// QueuedRequestCount sums the pending-queue length across all workers.
func (m *PerWorkerManager) QueuedRequestCount() int {
	total := 0
	for _, w := range m.ring {
		total += w.QueueLen()
	}
	return total
}
