package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// UpdateListener subscribes to the broker tick channel and relays frames
// to the local ConnectionManager. Each API process runs one listener on
// its own subscriber connection; the go-redis client resubscribes
// transparently after broker hiccups.
type UpdateListener struct {
	url     string
	manager *ConnectionManager

	rdb    *redis.Client
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewUpdateListener creates a listener for the given broker URL.
func NewUpdateListener(brokerURL string, manager *ConnectionManager) *UpdateListener {
	return &UpdateListener{url: brokerURL, manager: manager}
}

// Start opens the subscriber connection and begins relaying. It returns
// once the subscription is confirmed, so an unreachable broker fails
// startup instead of surfacing later. Relaying continues until Stop.
func (l *UpdateListener) Start(ctx context.Context) error {
	opts, err := redis.ParseURL(l.url)
	if err != nil {
		return fmt.Errorf("failed to parse broker URL: %w", err)
	}
	l.rdb = redis.NewClient(opts)

	l.pubsub = l.rdb.Subscribe(ctx, UpdatesChannel)
	if _, err := l.pubsub.Receive(ctx); err != nil {
		_ = l.pubsub.Close()
		_ = l.rdb.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", UpdatesChannel, err)
	}

	l.done = make(chan struct{})
	go l.relay()

	slog.Info("Update listener started", "channel", UpdatesChannel)
	return nil
}

// relay forwards ticks until the subscription closes.
func (l *UpdateListener) relay() {
	defer close(l.done)
	for msg := range l.pubsub.Channel() {
		l.manager.Broadcast([]byte(msg.Payload))
	}
}

// Stop closes the subscription and waits for the relay goroutine to
// drain.
func (l *UpdateListener) Stop() {
	if l.pubsub == nil {
		return
	}
	_ = l.pubsub.Close()
	<-l.done
	_ = l.rdb.Close()
	slog.Info("Update listener stopped")
}
