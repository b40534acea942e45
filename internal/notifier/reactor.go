package notifier

import "github.com/cyw0ng95/recodex-broker/internal/reactor"

// Status-notifier message field names, matching the flat key/value frame
// layout the notifier handler parses (spec §4.4, §4.7).
const (
	FieldType    = "type"
	FieldID      = "id"
	FieldStatus  = "status"
	FieldMessage = "message"

	TypeError     = "error"
	TypeJobStatus = "job-status"

	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// ReactorNotifier emits status-notifier events as reactor messages keyed
// by the key given to NewReactorNotifier, for consumption by an async handler (typically
// internal/notifierhandler.Handler) rather than calling out directly.
// This decouples the broker's dispatch loop from the HTTP round trip.
type ReactorNotifier struct {
	key    string
	notify reactor.ResponseFunc
}

// NewReactorNotifier builds a notifier that posts messages keyed by key
// through notify (normally Reactor.SendMessage).
func NewReactorNotifier(key string, notify reactor.ResponseFunc) *ReactorNotifier {
	return &ReactorNotifier{key: key, notify: notify}
}

func (n *ReactorNotifier) Error(desc string) {
	n.notify(reactor.NewMessage(n.key, "", FieldType, TypeError, FieldMessage, desc))
}

func (n *ReactorNotifier) JobDone(jobID string) {
	n.notify(reactor.NewMessage(n.key, "", FieldType, TypeJobStatus, FieldID, jobID, FieldStatus, StatusOK))
}

func (n *ReactorNotifier) JobFailed(jobID, desc string) {
	n.notify(reactor.NewMessage(n.key, "", FieldType, TypeJobStatus, FieldID, jobID, FieldStatus, StatusFailed, FieldMessage, desc))
}

func (n *ReactorNotifier) RejectedJob(jobID, desc string) {
	n.JobFailed(jobID, desc)
}

func (n *ReactorNotifier) RejectedJobs(jobIDs []string, desc string) {
	for _, id := range jobIDs {
		n.RejectedJob(id, desc)
	}
}

var _ Notifier = (*ReactorNotifier)(nil)
