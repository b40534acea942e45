package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleQueueManager_AssignsIdleWorkerDirectly(t *testing.T) {
	m := NewSingleQueueManager(nil, nil)
	w := newWorker("w1", "c")
	m.AddWorker(w, nil)

	assigned, ok := m.EnqueueRequest(reqWithEnv("J1", "c"))
	require.True(t, ok)
	assert.Same(t, w, assigned)
}

func TestSingleQueueManager_QueuesGloballyWhenBusy(t *testing.T) {
	m := NewSingleQueueManager(nil, nil)
	w := newWorker("w1", "c")
	m.AddWorker(w, reqWithEnv("already-running", "c"))

	_, ok := m.EnqueueRequest(reqWithEnv("J1", "c"))
	require.True(t, ok)
	assert.Equal(t, 1, m.QueuedRequestCount())

	next := m.WorkerFinished(w)
	require.NotNil(t, next)
	assert.Equal(t, "J1", next.JobID)
	assert.Equal(t, 0, m.QueuedRequestCount())
}

func TestSingleQueueManager_RejectsWithNoCapableWorker(t *testing.T) {
	m := NewSingleQueueManager(nil, nil)
	w := newWorker("w1", "cpp")
	m.AddWorker(w, nil)

	_, ok := m.EnqueueRequest(reqWithEnv("J1", "c"))
	assert.False(t, ok)
}
