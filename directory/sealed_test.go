package directory_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/directory/directorytest"
	"github.com/jrsteele09/go-session-server/directory/repofake"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/stretchr/testify/require"
)

var testSealKey = bytes.Repeat([]byte{7}, 32)

func TestSealed_Contract(t *testing.T) {
	directorytest.Run(t, func(t *testing.T, now func() time.Time) directory.Directory {
		sealed, err := directory.NewSealed(repofake.NewFakeDirectory().WithNowTime(now), testSealKey)
		require.NoError(t, err)
		return sealed
	})
}

func TestSealed_TokensAreEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	backend := repofake.NewFakeDirectory()
	sealed, err := directory.NewSealed(backend, testSealKey)
	require.NoError(t, err)

	res, err := sealed.CreateUser(ctx, "user-1", directory.Credentials{
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
		ExpiresIn:    60,
	}, "sid-1")
	require.NoError(t, err)
	require.True(t, res.OK())

	stored, ok := backend.Get("user-1")
	require.True(t, ok)
	require.NotContains(t, stored.AccessToken, "plain-access")
	require.NotContains(t, stored.RefreshToken, "plain-refresh")
	require.True(t, strings.HasPrefix(stored.AccessToken, "sealed.v1."))

	rec, err := sealed.LookupBySessionID(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, "plain-access", rec.AccessToken)
}

func TestSealed_LegacyPlainValuesPassThrough(t *testing.T) {
	backend := repofake.NewFakeDirectory()
	backend.Seed(directory.UserRecord{
		UpstreamUserID: "user-1",
		SessionID:      "sid-1",
		Credentials:    directory.Credentials{AccessToken: "legacy", ExpiresIn: 60},
		IssuedAt:       time.Now(),
	})
	sealed, err := directory.NewSealed(backend, testSealKey)
	require.NoError(t, err)

	rec, err := sealed.LookupBySessionID(context.Background(), "sid-1")
	require.NoError(t, err)
	require.Equal(t, status.OK, rec.Status)
	require.Equal(t, "legacy", rec.AccessToken)
}

func TestSealed_WrongKeyFails(t *testing.T) {
	ctx := context.Background()
	backend := repofake.NewFakeDirectory()
	sealed, err := directory.NewSealed(backend, testSealKey)
	require.NoError(t, err)
	_, err = sealed.CreateUser(ctx, "user-1", directory.Credentials{AccessToken: "secret", ExpiresIn: 60}, "sid-1")
	require.NoError(t, err)

	other, err := directory.NewSealed(backend, bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	_, err = other.LookupBySessionID(ctx, "sid-1")
	require.Error(t, err)
}

func TestNewSealed_RejectsBadKey(t *testing.T) {
	_, err := directory.NewSealed(repofake.NewFakeDirectory(), []byte("short"))
	require.Error(t, err)

	_, err = directory.NewSealed(nil, testSealKey)
	require.Error(t, err)
}
