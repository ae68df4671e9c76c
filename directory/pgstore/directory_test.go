package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/directory/directorytest"
	"github.com/jrsteele09/go-session-server/directory/pgstore"
	"github.com/stretchr/testify/require"
)

const postgresURLEnv = "DIRECTORY_TEST_POSTGRES_URL"

func TestPostgresDirectory_Contract(t *testing.T) {
	url := os.Getenv(postgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}

	ctx := context.Background()
	pool, err := pgstore.NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	directorytest.Run(t, func(t *testing.T, now func() time.Time) directory.Directory {
		d := pgstore.New(pool, now)
		require.NoError(t, d.Migrate(ctx))
		_, err := pool.Exec(ctx, `TRUNCATE directory_users`)
		require.NoError(t, err)
		return d
	})
}
