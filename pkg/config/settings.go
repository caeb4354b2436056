// Package config loads runtime settings from the environment. Every knob
// has a default suited to local single-node use; production deployments
// override via environment variables or a .env file loaded at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Deterministic identifiers for the self-hosted default scope. Derived
// with UUIDv5 over fixed names so every deployment and the seed migration
// agree on the same pair without coordination.
var (
	defaultTenantID  = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("llmscope.default.tenant"))
	defaultProjectID = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("llmscope.default.project"))
)

// DefaultTenantID returns the UUIDv5 of the built-in tenant.
func DefaultTenantID() uuid.UUID { return defaultTenantID }

// DefaultProjectID returns the UUIDv5 of the built-in project.
func DefaultProjectID() uuid.UUID { return defaultProjectID }

// Settings holds the resolved runtime configuration shared by the API
// server and the drain worker.
type Settings struct {
	// BrokerURL is the Redis connection URL for the queue, the DLQ and
	// the live-update pub/sub channel.
	BrokerURL string

	// QueueName is the Redis list holding pending events.
	QueueName string

	// DLQName is the Redis list holding dead-lettered entries.
	DLQName string

	// QueueBatchSize is the maximum number of events a worker pops per
	// drain cycle.
	QueueBatchSize int

	// WorkerPollInterval is how long a worker sleeps when the queue is
	// empty before polling again.
	WorkerPollInterval time.Duration

	// WorkerMaxRetries is the number of additional store attempts after
	// the first failure before an event is dead-lettered.
	WorkerMaxRetries int

	// WorkerRetryBackoffBase is the exponent base for retry backoff:
	// attempt n sleeps base^n seconds.
	WorkerRetryBackoffBase float64

	// WorkerEnabled starts an in-process drain worker inside the API
	// server. Disable it when running dedicated worker processes.
	WorkerEnabled bool

	// APIKey is the static key required on every /api/v1 request.
	APIKey string

	// APIKeyHeader is the request header carrying the API key.
	APIKeyHeader string

	// HTTPPort is the API server listen port.
	HTTPPort string

	// GracefulShutdownTimeout bounds how long shutdown waits for the
	// in-flight batch to complete.
	GracefulShutdownTimeout time.Duration

	// DefaultTenantID and DefaultProjectID are stamped onto every
	// ingested event until per-tenant auth exists.
	DefaultTenantID  uuid.UUID
	DefaultProjectID uuid.UUID
}

// Load reads settings from the environment, applying defaults for unset
// keys. It fails on values that parse but make no sense, such as a
// non-positive batch size.
func Load() (*Settings, error) {
	s := &Settings{
		BrokerURL:    getEnvOrDefault("BROKER_URL", "redis://localhost:6379/0"),
		QueueName:    getEnvOrDefault("QUEUE_NAME", "llm_events_queue"),
		DLQName:      getEnvOrDefault("DLQ_NAME", "llm_events_dlq"),
		APIKey:       getEnvOrDefault("API_KEY", "llmscope-local-key"),
		APIKeyHeader: getEnvOrDefault("API_KEY_HEADER", "X-API-Key"),
		HTTPPort:     getEnvOrDefault("HTTP_PORT", "8000"),
	}

	batchSize, err := strconv.Atoi(getEnvOrDefault("QUEUE_BATCH_SIZE", "100"))
	if err != nil || batchSize <= 0 {
		return nil, fmt.Errorf("invalid QUEUE_BATCH_SIZE: %q", os.Getenv("QUEUE_BATCH_SIZE"))
	}
	s.QueueBatchSize = batchSize

	pollInterval, err := parseInterval(getEnvOrDefault("WORKER_POLL_INTERVAL", "100ms"))
	if err != nil || pollInterval <= 0 {
		return nil, fmt.Errorf("invalid WORKER_POLL_INTERVAL: %q", os.Getenv("WORKER_POLL_INTERVAL"))
	}
	s.WorkerPollInterval = pollInterval

	maxRetries, err := strconv.Atoi(getEnvOrDefault("WORKER_MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 {
		return nil, fmt.Errorf("invalid WORKER_MAX_RETRIES: %q", os.Getenv("WORKER_MAX_RETRIES"))
	}
	s.WorkerMaxRetries = maxRetries

	backoffBase, err := strconv.ParseFloat(getEnvOrDefault("WORKER_RETRY_BACKOFF_BASE", "2.0"), 64)
	if err != nil || backoffBase <= 0 {
		return nil, fmt.Errorf("invalid WORKER_RETRY_BACKOFF_BASE: %q", os.Getenv("WORKER_RETRY_BACKOFF_BASE"))
	}
	s.WorkerRetryBackoffBase = backoffBase

	workerEnabled, err := strconv.ParseBool(getEnvOrDefault("WORKER_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_ENABLED: %q", os.Getenv("WORKER_ENABLED"))
	}
	s.WorkerEnabled = workerEnabled

	shutdownTimeout, err := parseInterval(getEnvOrDefault("GRACEFUL_SHUTDOWN_TIMEOUT", "30s"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, fmt.Errorf("invalid GRACEFUL_SHUTDOWN_TIMEOUT: %q", os.Getenv("GRACEFUL_SHUTDOWN_TIMEOUT"))
	}
	s.GracefulShutdownTimeout = shutdownTimeout

	tenantID, err := parseUUIDOrDefault("DEFAULT_TENANT_ID", defaultTenantID)
	if err != nil {
		return nil, err
	}
	s.DefaultTenantID = tenantID

	projectID, err := parseUUIDOrDefault("DEFAULT_PROJECT_ID", defaultProjectID)
	if err != nil {
		return nil, err
	}
	s.DefaultProjectID = projectID

	return s, nil
}

// parseUUIDOrDefault reads a UUID from the environment, falling back when
// the variable is unset.
func parseUUIDOrDefault(key string, fallback uuid.UUID) (uuid.UUID, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return id, nil
}

// parseInterval accepts Go duration syntax ("100ms", "30s") and, for
// compatibility with deployments configured in seconds, a bare number
// ("0.1").
func parseInterval(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
