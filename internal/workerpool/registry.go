package workerpool

import "github.com/cyw0ng95/recodex-broker/internal/headers"

// Registry is an ordered collection of workers. List order encodes
// scheduling priority: FindWorker returns the earliest worker that
// satisfies all requirements, and DeprioritizeWorker moves a worker to
// the tail after it accepts a job, giving round-robin fairness among
// workers of equal capability (spec §4.2).
//
// A linear scan is intentional: fleets are small and list-order priority
// with move-to-tail gives fair rotation without additional indices.
type Registry struct {
	workers []*Worker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddWorker appends w to the registry.
func (r *Registry) AddWorker(w *Worker) {
	r.workers = append(r.workers, w)
}

// RemoveWorker erases the first occurrence of w.
func (r *Registry) RemoveWorker(w *Worker) {
	for i, candidate := range r.workers {
		if candidate == w {
			r.workers = append(r.workers[:i], r.workers[i+1:]...)
			return
		}
	}
}

// FindWorker returns the first worker in list order that satisfies every
// required header, or nil if none does.
func (r *Registry) FindWorker(required headers.Headers) *Worker {
	for _, w := range r.workers {
		if w.CheckHeaders(required) {
			return w
		}
	}
	return nil
}

// FindWorkerByIdentity returns the worker registered under identity, or
// nil if no such worker exists. Identity is unique across the registry.
func (r *Registry) FindWorkerByIdentity(identity string) *Worker {
	for _, w := range r.workers {
		if w.Identity == identity {
			return w
		}
	}
	return nil
}

// DeprioritizeWorker moves w to the tail of the registry if it is present
// and not already last; a no-op if w is already at the tail or absent.
func (r *Registry) DeprioritizeWorker(w *Worker) {
	for i, candidate := range r.workers {
		if candidate == w {
			if i == len(r.workers)-1 {
				return
			}
			r.workers = append(r.workers[:i], r.workers[i+1:]...)
			r.workers = append(r.workers, w)
			return
		}
	}
}

// GetWorkers returns the registry's current ordered list. Callers must
// not retain it across a mutating call.
func (r *Registry) GetWorkers() []*Worker {
	return r.workers
}
