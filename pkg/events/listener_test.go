package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/broker"
)

func redisSubscribe(t *testing.T, addr string) <-chan string {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pubsub := rdb.Subscribe(context.Background(), UpdatesChannel)
	_, err := pubsub.Receive(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pubsub.Close()
		_ = rdb.Close()
	})

	out := make(chan string, 1)
	go func() {
		for msg := range pubsub.Channel() {
			out <- msg.Payload
		}
	}()
	return out
}

func TestUpdateListenerRelaysTicks(t *testing.T) {
	mr := miniredis.RunT(t)

	manager, server := setupTestManager(t)
	listener := NewUpdateListener("redis://"+mr.Addr(), manager)
	require.NoError(t, listener.Start(context.Background()))
	t.Cleanup(listener.Stop)

	viewer := connectWS(t, server)
	readFrame(t, viewer)
	waitForConnections(t, manager, 1)

	client, err := broker.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	publisher := NewTickPublisher(client)
	require.NoError(t, publisher.PublishEventUpdate(context.Background()))

	msg := readFrame(t, viewer)
	assert.Equal(t, "event_update", msg["type"])
}

func TestUpdateListenerStartFailsWithBadURL(t *testing.T) {
	manager := NewConnectionManager(time.Second)
	listener := NewUpdateListener("not-a-url", manager)
	assert.Error(t, listener.Start(context.Background()))
}

func TestUpdateListenerStartFailsWhenBrokerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	manager := NewConnectionManager(time.Second)
	listener := NewUpdateListener("redis://"+addr, manager)
	assert.Error(t, listener.Start(context.Background()))
}

func TestUpdateListenerStopIsIdempotentBeforeStart(t *testing.T) {
	listener := NewUpdateListener("redis://localhost:6379", NewConnectionManager(time.Second))
	assert.NotPanics(t, listener.Stop)
}

func TestTickPublisherPayload(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := broker.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Subscribe directly so the exact wire payload is visible.
	sub := redisSubscribe(t, mr.Addr())

	publisher := NewTickPublisher(client)
	require.NoError(t, publisher.PublishEventUpdate(context.Background()))

	select {
	case payload := <-sub:
		assert.JSONEq(t, `{"type":"event_update"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no tick received")
	}
}
