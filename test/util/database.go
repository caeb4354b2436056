// Package util provides shared helpers for tests that need a real event
// store. A TimescaleDB testcontainer is started once per test binary; each
// test gets its own schema, so tests stay isolated without paying the
// container startup cost per test.
package util

import (
	"context"
	"crypto/rand"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for schema management
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/llmscope/llmscope/pkg/database"
)

var (
	// Shared connection string for all tests in local dev
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// SetupTestStore creates an isolated event store for one test: a dedicated
// schema inside the shared database, migrated through the same embedded
// migrations production runs, including the hypertable, the continuous
// aggregates, and the default scope seed. The schema is dropped when the
// test completes.
func SetupTestStore(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	// Get connection string (from CI env var or shared container)
	connStr := getOrCreateSharedDatabase(t)

	schemaName := generateSchemaName(t)

	db, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schemaName))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Logf("Created test schema: %s", schemaName)

	cfg := database.Config{
		DSN:             addSearchPath(connStr, schemaName),
		MaxConns:        10,
		MinConns:        1,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}

	// NewClient migrates into the schema and opens the pool, exercising
	// the same startup path as the binaries.
	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()

		db, err := stdsql.Open("pgx", connStr)
		if err != nil {
			t.Logf("Warning: could not reconnect to drop schema %s: %v", schemaName, err)
			return
		}
		if _, err := db.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName)); err != nil {
			t.Logf("Warning: failed to drop schema %s: %v", schemaName, err)
		}
		_ = db.Close()
	})

	return client
}

// getOrCreateSharedDatabase returns a connection string to the shared
// database. In CI, uses CI_DATABASE_URL (which must point at a TimescaleDB
// instance with the toolkit installed). In local dev, starts a shared
// testcontainer once per test binary.
func getOrCreateSharedDatabase(t *testing.T) string {
	if ciDatabaseURL := os.Getenv("CI_DATABASE_URL"); ciDatabaseURL != "" {
		t.Log("Using external TimescaleDB from CI_DATABASE_URL")
		return ciDatabaseURL
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("Starting shared TimescaleDB testcontainer for all tests")

		pgContainer, err := postgres.Run(ctx,
			"timescale/timescaledb-ha:pg17",
			postgres.WithDatabase("llmscope_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start timescaledb container: %w", err)
			return
		}

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}

		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "Failed to set up shared test container")
	return sharedConnStr
}

// generateSchemaName creates a unique, PostgreSQL-safe schema name for the
// test. Format: test_<sanitized_test_name>_<random_hex>
func generateSchemaName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)

	// Stay clear of PostgreSQL's 63 char identifier limit
	if len(name) > 40 {
		name = name[:40]
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		t.Fatalf("failed to generate random bytes for schema name: %v", err)
	}

	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(suffix))
}

// addSearchPath appends a search_path parameter so every pooled connection
// targets the test schema. public stays on the path because the timescaledb
// extension functions live there.
func addSearchPath(connStr, schemaName string) string {
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s,public", connStr, separator, schemaName)
}
