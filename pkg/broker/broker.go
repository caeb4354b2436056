// Package broker adapts Redis lists as the durable ingest queue and its
// dead-letter companion, and exposes the pub/sub primitive carrying live
// update ticks. Producers push to the head, workers pop from the tail, so
// each list behaves as a FIFO queue.
package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper over a shared Redis connection pool. All queue
// operations take the queue name explicitly; the queue and the DLQ are the
// same mechanism under different keys.
type Client struct {
	rdb *redis.Client
}

// New creates a broker client from a Redis URL such as
// redis://localhost:6379/0. The connection is established lazily; use
// Ping to verify reachability.
func New(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse broker URL: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Enqueue pushes a payload onto the head of the named queue.
func (c *Client) Enqueue(ctx context.Context, queue, payload string) error {
	if err := c.rdb.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue to %s: %w", queue, err)
	}
	return nil
}

// PopBatch removes up to n payloads from the tail of the named queue and
// returns them oldest first. An empty queue yields an empty slice, not an
// error. Popped payloads are the worker's to finish; there is no
// acknowledgement step.
func (c *Client) PopBatch(ctx context.Context, queue string, n int) ([]string, error) {
	payloads, err := c.rdb.RPopCount(ctx, queue, n).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from %s: %w", queue, err)
	}
	return payloads, nil
}

// Length returns the number of payloads waiting in the named queue.
func (c *Client) Length(ctx context.Context, queue string) (int64, error) {
	length, err := c.rdb.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of %s: %w", queue, err)
	}
	return length, nil
}

// Publish sends a payload to all subscribers of a pub/sub channel. Unlike
// queue entries, published payloads are fire-and-forget.
func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Ping verifies broker reachability.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("broker unreachable: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
