package config

import "time"

// QueueConfig contains drain worker configuration. These values control
// how events are popped from the broker, retried against the store, and
// dead-lettered.
type QueueConfig struct {
	// QueueName is the Redis list the worker drains.
	QueueName string

	// DLQName is the Redis list receiving dead-lettered entries.
	DLQName string

	// BatchSize is the maximum number of events popped per drain cycle.
	BatchSize int

	// PollInterval is the idle sleep between polls of an empty queue.
	PollInterval time.Duration

	// MaxRetries is the number of additional store attempts after the
	// first failure. An event is dead-lettered once they are spent.
	MaxRetries int

	// RetryBackoffBase is the exponent base for retry backoff: attempt n
	// sleeps base^n seconds before the next try.
	RetryBackoffBase float64

	// WorkerCount is the number of drain goroutines per process. Scaling
	// beyond one trades strict arrival ordering for throughput.
	WorkerCount int

	// GracefulShutdownTimeout bounds how long Stop waits for the
	// in-flight batch to complete.
	GracefulShutdownTimeout time.Duration
}

// DefaultQueueConfig returns the built-in worker defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		QueueName:               "llm_events_queue",
		DLQName:                 "llm_events_dlq",
		BatchSize:               100,
		PollInterval:            100 * time.Millisecond,
		MaxRetries:              3,
		RetryBackoffBase:        2.0,
		WorkerCount:             1,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// QueueConfig projects the worker-facing subset of the settings.
func (s *Settings) QueueConfig() *QueueConfig {
	return &QueueConfig{
		QueueName:               s.QueueName,
		DLQName:                 s.DLQName,
		BatchSize:               s.QueueBatchSize,
		PollInterval:            s.WorkerPollInterval,
		MaxRetries:              s.WorkerMaxRetries,
		RetryBackoffBase:        s.WorkerRetryBackoffBase,
		WorkerCount:             1,
		GracefulShutdownTimeout: s.GracefulShutdownTimeout,
	}
}
