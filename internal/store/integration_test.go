//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:17-alpine"

// setupPostgres starts a throwaway postgres and returns its connection URL.
func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("metastore"),
		postgres.WithUsername("oracle"),
		postgres.WithPassword("oracle"),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "retrieving connection string for postgres container")
	return url
}

func TestPostgresGateway(t *testing.T) {
	url := setupPostgres(t)
	ctx := context.Background()

	for _, driver := range []string{DriverPgx, DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			g, err := Open(Config{Driver: driver, DSN: url})
			require.NoError(t, err)
			defer g.Close()

			require.NoError(t, g.DropTableIfExists(ctx, DBS.Name))
			require.NoError(t, g.CreateTable(ctx, DBS))

			err = g.CreateTable(ctx, DBS)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTableExists))

			uris := []string{
				"wasb://bravo@gopher.blob.core.windows.net/warehouse/t1",
				"adl://gopher.azuredatalakestore.net/warehouse/t2",
			}
			require.NoError(t, g.BulkInsert(ctx, DBS, uris))

			got, err := g.QueryAll(ctx, DBS)
			require.NoError(t, err)
			assert.Equal(t, uris, got)

			rows, err := g.QueryMatchingWithID(ctx, DBS, "adl://*")
			require.NoError(t, err)
			assert.Equal(t, []Row{{URI: uris[1], ID: 2}}, rows)

			require.NoError(t, g.DropTableIfExists(ctx, DBS.Name))
		})
	}
}
