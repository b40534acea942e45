package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyw0ng95/recodex-broker/internal/headers"
	"github.com/cyw0ng95/recodex-broker/internal/request"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

func newWorker(id, env string) *workerpool.Worker {
	adv := headers.New()
	adv.Add("env", env)
	return workerpool.New(id, "c_group", adv, workerpool.DefaultMaxWorkerLiveness)
}

func reqWithEnv(jobID, env string) *request.Request {
	h := headers.New()
	h.Add("env", env)
	return request.New(h, jobID, []string{"eval", jobID})
}

func TestPerWorkerManager_AssignsIdleWorkerDirectly(t *testing.T) {
	m := NewPerWorkerManager()
	w := newWorker("w1", "c")
	m.AddWorker(w, nil)

	assigned, ok := m.EnqueueRequest(reqWithEnv("J1", "c"))
	require.True(t, ok)
	assert.Same(t, w, assigned)
	assert.Equal(t, "J1", w.Current().JobID)
}

func TestPerWorkerManager_QueuesWhenBusy(t *testing.T) {
	m := NewPerWorkerManager()
	w := newWorker("w1", "c")
	m.AddWorker(w, nil)

	assigned1, ok1 := m.EnqueueRequest(reqWithEnv("J1", "c"))
	assigned2, ok2 := m.EnqueueRequest(reqWithEnv("J2", "c"))

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Same(t, w, assigned1)
	assert.Nil(t, assigned2)
	assert.Equal(t, 1, m.QueuedRequestCount())

	next := m.WorkerFinished(w)
	require.NotNil(t, next)
	assert.Equal(t, "J2", next.JobID)
	assert.Equal(t, 0, m.QueuedRequestCount())
}

func TestPerWorkerManager_RejectsWithNoCapableWorker(t *testing.T) {
	m := NewPerWorkerManager()
	w := newWorker("w1", "cpp")
	m.AddWorker(w, nil)

	_, ok := m.EnqueueRequest(reqWithEnv("J1", "c"))
	assert.False(t, ok)
}

func TestPerWorkerManager_LoadBalancesAcrossEqualWorkers(t *testing.T) {
	m := NewPerWorkerManager()
	w1 := newWorker("w1", "c")
	w2 := newWorker("w2", "c")
	m.AddWorker(w1, nil)
	m.AddWorker(w2, nil)

	first, _ := m.EnqueueRequest(reqWithEnv("J1", "c"))
	second, _ := m.EnqueueRequest(reqWithEnv("J2", "c"))

	assert.NotSame(t, first, second)
}

func TestPerWorkerManager_WorkerTerminatedReturnsPending(t *testing.T) {
	m := NewPerWorkerManager()
	w := newWorker("w1", "c")
	m.AddWorker(w, nil)

	m.EnqueueRequest(reqWithEnv("J1", "c"))
	m.EnqueueRequest(reqWithEnv("J2", "c"))

	pending := m.WorkerTerminated(w)
	require.Len(t, pending, 2)
	assert.Equal(t, "J1", pending[0].JobID)
	assert.Equal(t, "J2", pending[1].JobID)
	assert.Equal(t, 0, m.QueuedRequestCount())
}
