// Package dbtest starts a throwaway migrated PostgreSQL for integration tests
// outside the database package.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/database"
)

// New returns a gorm handle on a fresh container. It skips the test under
// -short.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("qa_forum"),
		postgres.WithUsername("qa"),
		postgres.WithPassword("qa"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(dsn, database.Options{MaxOpenConns: 10, MaxIdleConns: 5})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}
