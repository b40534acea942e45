package queue

import (
	"github.com/cyw0ng95/recodex-broker/internal/request"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

// entry pairs a pending request with its arrival sequence number. New
// entries are appended, so the global queue is in arrival order unless a
// comparator reorders it; the default comparator never does (FCFS).
type entry struct {
	req     *request.Request
	arrival int64
}

// Comparator orders two queued entries; Less(a, b) reports whether a
// should be served before b. The default is arrival-time ascending.
type Comparator func(a, b *request.Request) bool

// Selector picks a worker able to accept req from the currently idle
// workers (in insertion order), or nil if none qualifies. The default
// picks the first of them whose CheckHeaders accepts req.
type Selector func(workers []*workerpool.Worker, req *request.Request) *workerpool.Worker

// SingleQueueManager implements the alternate policy from spec §4.3: one
// global FIFO of pending requests shared by all workers, ordered by a
// pluggable comparator, with a pluggable idle-worker selector used to
// assign directly when possible.
type SingleQueueManager struct {
	workers    []*workerpool.Worker
	jobs       map[*workerpool.Worker]*request.Request
	global     []entry
	seq        int64
	comparator Comparator
	selector   Selector
}

// NewSingleQueueManager returns a single-queue manager using FCFS
// ordering and first-capable-idle-worker selection unless overridden.
func NewSingleQueueManager(cmp Comparator, sel Selector) *SingleQueueManager {
	if cmp == nil {
		cmp = func(a, b *request.Request) bool { return false } // arrival order used directly
	}
	if sel == nil {
		sel = defaultSelector
	}
	return &SingleQueueManager{
		jobs:       make(map[*workerpool.Worker]*request.Request),
		comparator: cmp,
		selector:   sel,
	}
}

func defaultSelector(workers []*workerpool.Worker, req *request.Request) *workerpool.Worker {
	for _, w := range workers {
		if w.Current() == nil && w.CheckHeaders(req.Headers) {
			return w
		}
	}
	return nil
}

// AddWorker registers w with the manager.
func (m *SingleQueueManager) AddWorker(w *workerpool.Worker, current *request.Request) {
	m.workers = append(m.workers, w)
	m.jobs[w] = current
}

// EnqueueRequest tries the selector for an idle match first; if none is
// found but some worker could eventually accept the headers, the request
// is pushed onto the global queue; if no worker at all could ever accept
// it, the request is rejected.
func (m *SingleQueueManager) EnqueueRequest(req *request.Request) (*workerpool.Worker, bool) {
	// assignment is tracked in m.jobs, not on the worker, so idleness is
	// decided here and the selector only sees idle workers.
	idle := make([]*workerpool.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		if m.jobs[w] == nil {
			idle = append(idle, w)
		}
	}
	if w := m.selector(idle, req); w != nil {
		m.jobs[w] = req
		return w, true
	}

	canEverAccept := false
	for _, w := range m.workers {
		if w.CheckHeaders(req.Headers) {
			canEverAccept = true
			break
		}
	}
	if !canEverAccept {
		return nil, false
	}

	m.seq++
	m.global = append(m.global, entry{req: req, arrival: m.seq})
	m.sortGlobal()
	return nil, true
}

// sortGlobal applies the comparator to order the global queue; ties fall
// back to arrival order (stable FCFS).
func (m *SingleQueueManager) sortGlobal() {
	for i := 1; i < len(m.global); i++ {
		for j := i; j > 0; j-- {
			a, b := m.global[j], m.global[j-1]
			if m.comparator(a.req, b.req) {
				m.global[j], m.global[j-1] = m.global[j-1], m.global[j]
			} else {
				break
			}
		}
	}
}

// assignFromGlobal finds the first global-queue entry w accepts, removes
// it, and assigns it as w's job.
func (m *SingleQueueManager) assignFromGlobal(w *workerpool.Worker) *request.Request {
	for i, e := range m.global {
		if w.CheckHeaders(e.req.Headers) {
			m.global = append(m.global[:i], m.global[i+1:]...)
			m.jobs[w] = e.req
			return e.req
		}
	}
	return nil
}

// WorkerFinished clears w's job and tries to pull the next matching
// request from the global queue.
func (m *SingleQueueManager) WorkerFinished(w *workerpool.Worker) *request.Request {
	m.jobs[w] = nil
	return m.assignFromGlobal(w)
}

// WorkerCancelled clears and returns w's job without reassigning.
func (m *SingleQueueManager) WorkerCancelled(w *workerpool.Worker) *request.Request {
	current := m.jobs[w]
	m.jobs[w] = nil
	return current
}

// WorkerTerminated returns w's current job (if any) plus nothing else —
// the single-queue policy has no per-worker backlog to drain, since all
// pending requests live in the shared global queue — and forgets w.
func (m *SingleQueueManager) WorkerTerminated(w *workerpool.Worker) []*request.Request {
	var out []*request.Request
	if current := m.jobs[w]; current != nil {
		out = append(out, current)
	}
	delete(m.jobs, w)
	for i, candidate := range m.workers {
		if candidate == w {
			m.workers = append(m.workers[:i], m.workers[i+1:]...)
			break
		}
	}
	return out
}

// QueuedRequestCount returns the length of the shared global queue.
func (m *SingleQueueManager) QueuedRequestCount() int {
	return len(m.global)
}
