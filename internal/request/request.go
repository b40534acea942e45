// Package request defines the evaluation request model shared between the
// queue manager and the worker currently processing it.
package request

import "github.com/cyw0ng95/recodex-broker/internal/headers"

// Request is an evaluation job forwarded from a client to a worker. It is
// immutable after construction except for FailureCount, matching the
// invariant in spec.md §3.
type Request struct {
	Headers headers.Headers
	JobID   string
	Data    []string
	// FailureCount is reserved for retry-limit accounting; nothing
	// currently reads or writes it.
	FailureCount int
}

// New constructs a Request with a zero FailureCount.
func New(h headers.Headers, jobID string, data []string) *Request {
	return &Request{Headers: h, JobID: jobID, Data: data}
}
