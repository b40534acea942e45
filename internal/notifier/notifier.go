// Package notifier implements the status-notifier interface from spec
// §4.4: a thin outbound surface the broker core uses to report
// {error, job-done, job-failed, job-rejected} events. Implementations
// must not panic; they log and continue on transport failure.
package notifier

// Notifier reports job and broker-level status events to the frontend.
type Notifier interface {
	// Error reports a generic broker problem requiring operator
	// attention.
	Error(desc string)
	// JobDone reports that jobID completed successfully.
	JobDone(jobID string)
	// JobFailed reports that jobID completed with a non-OK result.
	JobFailed(jobID, desc string)
	// RejectedJob reports that a single job could not be assigned to
	// any worker.
	RejectedJob(jobID, desc string)
	// RejectedJobs reports that none of the given jobs could be
	// assigned to any worker.
	RejectedJobs(jobIDs []string, desc string)
}
