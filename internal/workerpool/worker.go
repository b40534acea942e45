// Package workerpool implements the worker record (§4.1 of SPEC_FULL.md)
// and the registry that tracks connected workers (§4.2).
package workerpool

import (
	"encoding/hex"

	"github.com/cyw0ng95/recodex-broker/internal/headers"
	"github.com/cyw0ng95/recodex-broker/internal/request"
)

// DefaultMaxWorkerLiveness is the default initial liveness of a newly
// registered worker; the broker passes the configured value to New.
const DefaultMaxWorkerLiveness = 4

// Worker describes one connected worker machine: its identity, advertised
// capabilities, liveness, and its FIFO of requests.
type Worker struct {
	// Identity is the opaque routing token assigned by the transport.
	Identity string
	// Hwgroup is the worker's hardware group string.
	Hwgroup string
	// HeadersAdvertised is the raw multimap the worker sent on init,
	// kept for byte-exact comparison on re-init.
	HeadersAdvertised headers.Headers
	// Matchers is derived from HeadersAdvertised plus the built-in
	// hwgroup/threads rules (see headers.NewMatcherSet).
	Matchers headers.MatcherSet
	// Liveness counts down from MaxLiveness to 0.
	Liveness int
	// MaxLiveness bounds Liveness from above (spec invariant 0<=liveness<=max).
	MaxLiveness int

	queue   []*request.Request
	current *request.Request

	// Description is an optional human-readable suffix appended after
	// the hex-encoded identity in log lines and notifier messages.
	Description string
}

// New constructs a worker with liveness seeded to maxLiveness, deriving
// its matcher set from the advertised headers and hwgroup.
func New(identity, hwgroup string, advertised headers.Headers, maxLiveness int) *Worker {
	return &Worker{
		Identity:          identity,
		Hwgroup:           hwgroup,
		HeadersAdvertised: advertised,
		Matchers:          headers.NewMatcherSet(advertised, hwgroup),
		Liveness:          maxLiveness,
		MaxLiveness:       maxLiveness,
	}
}

// CheckHeader reports whether the worker satisfies a single required
// (name, value) pair.
func (w *Worker) CheckHeader(name, value string) bool {
	return w.Matchers.CheckHeader(name, value)
}

// CheckHeaders reports whether the worker satisfies every header in
// required.
func (w *Worker) CheckHeaders(required headers.Headers) bool {
	return w.Matchers.CheckHeaders(required)
}

// HeadersEqual reports byte-exact multimap equality with the headers
// advertised at construction time — used to detect a conflicting re-init.
func (w *Worker) HeadersEqual(other headers.Headers) bool {
	return w.HeadersAdvertised.Equal(other)
}

// Current returns the request currently assigned to the worker, or nil
// if the worker is free.
func (w *Worker) Current() *request.Request {
	return w.current
}

// QueueLen reports the number of requests waiting behind the current one.
func (w *Worker) QueueLen() int {
	return len(w.queue)
}

// Enqueue appends req to the tail of the worker's pending queue.
func (w *Worker) Enqueue(req *request.Request) {
	w.queue = append(w.queue, req)
}

// NextRequest pops the head of the queue into Current if the worker is
// free and the queue is non-empty, returning true if it did so. It must
// never disturb an already-set Current.
func (w *Worker) NextRequest() bool {
	if w.current != nil || len(w.queue) == 0 {
		return false
	}
	w.current = w.queue[0]
	w.queue = w.queue[1:]
	return true
}

// CompleteRequest clears the current request, marking the worker free.
func (w *Worker) CompleteRequest() {
	w.current = nil
}

// Terminate returns every request owned by the worker — the current one
// (if any) followed by the queue, in order — and clears both, as when
// the worker is considered dead.
func (w *Worker) Terminate() []*request.Request {
	var out []*request.Request
	if w.current != nil {
		out = append(out, w.current)
	}
	out = append(out, w.queue...)
	w.current = nil
	w.queue = nil
	return out
}

// GetDescription returns the hex-encoded identity, optionally suffixed
// with a human description, matching the original broker's
// worker::get_description.
func (w *Worker) GetDescription() string {
	desc := hex.EncodeToString([]byte(w.Identity))
	if w.Description != "" {
		desc += " (" + w.Description + ")"
	}
	return desc
}
