// Package testutil provides a migrated Postgres database for repository tests.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rentdesk/rentdesk/internal/database"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// tables is every application table, truncated between tests.
var tables = []string{
	"tenant_access", "units", "properties", "businesses",
	"addon_purchases", "addon_products",
	"organization_overrides", "tier_versions", "tiers",
	"users", "organizations",
}

// DatabaseURL returns TEST_DATABASE_URL when set, otherwise the URL of a
// throwaway Postgres container started once per test binary. The test is
// skipped when neither is available.
func DatabaseURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		ctr, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("rentdesk_test"),
			postgres.WithUsername("rentdesk"),
			postgres.WithPassword("rentdesk"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerURL, containerErr = ctr.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("skipping: cannot start postgres container: %v", containerErr)
	}
	return containerURL
}

// NewPool returns a pool on a migrated database with every table truncated.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := DatabaseURL(t)
	require.NoError(t, database.MigrateUp(dbURL))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("skipping: cannot connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping: cannot ping test database: %v", err)
	}

	for _, table := range tables {
		_, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err)
	}

	t.Cleanup(pool.Close)
	return pool
}
