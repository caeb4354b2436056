package events

import "context"

// Broadcaster publishes to a broker pub/sub channel. Implemented by
// broker.Client.
type Broadcaster interface {
	Publish(ctx context.Context, channel, payload string) error
}

// TickPublisher announces stored batches to every API process. The worker
// calls it once per batch that stored at least one event.
type TickPublisher struct {
	broker Broadcaster
}

// NewTickPublisher creates a publisher over an existing broker client.
func NewTickPublisher(b Broadcaster) *TickPublisher {
	return &TickPublisher{broker: b}
}

// PublishEventUpdate sends one event_update tick.
func (p *TickPublisher) PublishEventUpdate(ctx context.Context) error {
	return p.broker.Publish(ctx, UpdatesChannel, string(eventUpdateFrame))
}
