package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/broker"
)

func setupPool(t *testing.T, store *stubStore, workerCount int) (*WorkerPool, *broker.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := broker.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := testQueueConfig()
	cfg.WorkerCount = workerCount
	pool := NewWorkerPool(client, store, nil, cfg)
	return pool, client, mr
}

func TestPoolStartCreatesWorkers(t *testing.T) {
	pool, _, _ := setupPool(t, &stubStore{}, 3)
	defer pool.Stop()

	require.NoError(t, pool.Start(context.Background()))

	h := pool.Health()
	assert.Equal(t, 3, h.TotalWorkers)
	assert.True(t, h.IsHealthy)
	assert.True(t, h.BrokerReachable)
	assert.Len(t, h.WorkerStats, 3)
}

func TestPoolStartTwiceIsNoOp(t *testing.T) {
	pool, _, _ := setupPool(t, &stubStore{}, 2)
	defer pool.Stop()

	ctx := context.Background()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Start(ctx))

	assert.Equal(t, 2, pool.Health().TotalWorkers)
}

func TestPoolStopTwiceDoesNotPanic(t *testing.T) {
	pool, _, _ := setupPool(t, &stubStore{}, 1)

	require.NoError(t, pool.Start(context.Background()))
	pool.Stop()
	assert.NotPanics(t, func() { pool.Stop() })
}

func TestPoolHealthReportsDepths(t *testing.T) {
	pool, client, _ := setupPool(t, &stubStore{}, 1)
	ctx := context.Background()

	require.NoError(t, client.Enqueue(ctx, "llm_events_queue", `{"n":1}`))
	require.NoError(t, client.Enqueue(ctx, "llm_events_dlq", `{"event":"x"}`))

	// Workers not started, so nothing drains the queue.
	h := pool.Health()
	assert.Equal(t, int64(1), h.QueueDepth)
	assert.Equal(t, int64(1), h.DLQDepth)
	assert.False(t, h.IsHealthy, "pool without workers is not healthy")
}

func TestPoolHealthBrokerDown(t *testing.T) {
	pool, _, mr := setupPool(t, &stubStore{}, 1)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	mr.Close()

	h := pool.Health()
	assert.False(t, h.IsHealthy)
	assert.False(t, h.BrokerReachable)
	assert.NotEmpty(t, h.BrokerError)
}

func TestPoolDrainsWithMultipleWorkers(t *testing.T) {
	store := &stubStore{}
	pool, client, _ := setupPool(t, store, 2)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		enqueueEvent(t, client, queuedEvent("gpt-4"))
	}

	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return len(store.stored()) == 10
	}, 2*time.Second, 5*time.Millisecond)

	depth, err := client.Length(ctx, "llm_events_queue")
	require.NoError(t, err)
	assert.Zero(t, depth)
}
