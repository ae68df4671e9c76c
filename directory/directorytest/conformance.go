// Package directorytest holds the behaviour every directory backend must share.
package directorytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/stretchr/testify/require"
)

// Factory opens an empty backend whose IssuedAt values come from now.
type Factory func(t *testing.T, now func() time.Time) directory.Directory

// testClock is a settable clock shared by a backend and its test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func creds(access string, expiresIn int64) directory.Credentials {
	return directory.Credentials{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		SessionState: "state-" + access,
		ExpiresIn:    expiresIn,
	}
}

// Run exercises a backend against the directory contract.
func Run(t *testing.T, open Factory) {
	t.Helper()
	ctx := context.Background()

	newBackend := func(t *testing.T) (directory.Directory, *testClock) {
		clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
		return open(t, clock.Now), clock
	}

	t.Run("create then read back", func(t *testing.T) {
		dir, clock := newBackend(t)

		exists, err := dir.Exists(ctx, "user-1")
		require.NoError(t, err)
		require.False(t, exists)

		res, err := dir.CreateUser(ctx, "user-1", creds("a1", 3600), "sid-1")
		require.NoError(t, err)
		require.True(t, res.OK(), res.Description)

		exists, err = dir.Exists(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, exists)

		sid, found, err := dir.ResolveSessionID(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "sid-1", sid)

		rec, err := dir.LookupBySessionID(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, status.OK, rec.Status)
		require.Equal(t, "a1", rec.AccessToken)
		require.EqualValues(t, 3600, rec.ExpiresIn)
		require.Equal(t, clock.Now().Unix(), rec.IssuedAt.Unix())
	})

	t.Run("duplicate upstream user is a conflict", func(t *testing.T) {
		dir, _ := newBackend(t)

		res, err := dir.CreateUser(ctx, "user-1", creds("a1", 3600), "sid-1")
		require.NoError(t, err)
		require.True(t, res.OK())

		res, err = dir.CreateUser(ctx, "user-1", creds("a2", 3600), "sid-2")
		require.NoError(t, err)
		require.Equal(t, status.Conflict, res.Status)

		sid, found, err := dir.ResolveSessionID(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "sid-1", sid)

		rec, err := dir.LookupBySessionID(ctx, "sid-2")
		require.NoError(t, err)
		require.Equal(t, status.LookupFailed, rec.Status)
	})

	t.Run("duplicate session id is a conflict", func(t *testing.T) {
		dir, _ := newBackend(t)

		res, err := dir.CreateUser(ctx, "user-1", creds("a1", 3600), "sid-1")
		require.NoError(t, err)
		require.True(t, res.OK())

		res, err = dir.CreateUser(ctx, "user-2", creds("a2", 3600), "sid-1")
		require.NoError(t, err)
		require.Equal(t, status.Conflict, res.Status)

		exists, err := dir.Exists(ctx, "user-2")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("create requires ids", func(t *testing.T) {
		dir, _ := newBackend(t)

		res, err := dir.CreateUser(ctx, "", creds("a1", 3600), "sid-1")
		require.NoError(t, err)
		require.False(t, res.OK())

		res, err = dir.CreateUser(ctx, "user-1", creds("a1", 3600), "")
		require.NoError(t, err)
		require.False(t, res.OK())
	})

	t.Run("update replaces tokens and keeps session id", func(t *testing.T) {
		dir, clock := newBackend(t)

		res, err := dir.CreateUser(ctx, "user-1", creds("a1", 3600), "sid-1")
		require.NoError(t, err)
		require.True(t, res.OK())

		clock.Advance(90 * time.Minute)

		res, err = dir.UpdateCredentials(ctx, "user-1", creds("a2", 300))
		require.NoError(t, err)
		require.True(t, res.OK(), res.Description)

		sid, found, err := dir.ResolveSessionID(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "sid-1", sid)

		rec, err := dir.LookupBySessionID(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, status.OK, rec.Status)
		require.Equal(t, "a2", rec.AccessToken)
		require.EqualValues(t, 300, rec.ExpiresIn)
		require.Equal(t, clock.Now().Unix(), rec.IssuedAt.Unix())
	})

	t.Run("update unknown user fails", func(t *testing.T) {
		dir, _ := newBackend(t)

		res, err := dir.UpdateCredentials(ctx, "ghost", creds("a1", 3600))
		require.NoError(t, err)
		require.False(t, res.OK())
		require.NotEmpty(t, res.Description)
	})

	t.Run("unknown ids", func(t *testing.T) {
		dir, _ := newBackend(t)

		sid, found, err := dir.ResolveSessionID(ctx, "ghost")
		require.NoError(t, err)
		require.False(t, found)
		require.Empty(t, sid)

		rec, err := dir.LookupBySessionID(ctx, "ghost-sid")
		require.NoError(t, err)
		require.Equal(t, status.LookupFailed, rec.Status)
		require.Equal(t, status.DescriptionSessionNotFound, rec.Description)
		require.Empty(t, rec.AccessToken)
	})

	t.Run("concurrent first logins create one record", func(t *testing.T) {
		dir, _ := newBackend(t)

		const attempts = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := dir.CreateUser(ctx, "racer", creds("a", 3600), "sid-race-"+string(rune('a'+i)))
				if err == nil && res.OK() {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		_, found, err := dir.ResolveSessionID(ctx, "racer")
		require.NoError(t, err)
		require.True(t, found)
	})
}
