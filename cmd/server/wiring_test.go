package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/identity"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.Identity
	config.Directory
	config.Security
}

func TestOpenDirectory_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Directory
	}{
		{name: "memory", cfg: config.Directory{Backend: config.BackendMemory}},
		{name: "sqlite", cfg: config.Directory{Backend: config.BackendSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "dir.db")}},
		{name: "bolt", cfg: config.Directory{Backend: config.BackendBolt, DSN: filepath.Join(t.TempDir(), "dir.bolt")}},
		{name: "redis", cfg: config.Directory{Backend: config.BackendRedis, DSN: "redis://" + mr.Addr(), RedisPrefix: "wiring"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, err := openDirectory(ctx, tt.cfg)
			require.NoError(t, err)
			defer be.close()

			res, err := be.directory.CreateUser(ctx, "user-1", directory.Credentials{AccessToken: "a", ExpiresIn: 60}, "sid-1")
			require.NoError(t, err)
			require.True(t, res.OK())

			if be.health != nil {
				require.NoError(t, be.health(ctx))
			}
		})
	}
}

func TestOpenDirectory_Unsupported(t *testing.T) {
	_, err := openDirectory(context.Background(), config.Directory{Backend: "cassandra"})
	require.True(t, errors.Is(err, errors.ErrUnsupportedBackend))
}

func TestSealDirectory(t *testing.T) {
	be, err := openDirectory(context.Background(), config.Directory{Backend: config.BackendMemory})
	require.NoError(t, err)

	d, err := sealDirectory(be.directory, config.Security{})
	require.NoError(t, err)
	require.Same(t, be.directory, d)

	key := hex.EncodeToString(bytes.Repeat([]byte{1}, 32))
	d, err = sealDirectory(be.directory, config.Security{SealKeyHex: key})
	require.NoError(t, err)
	require.IsType(t, &directory.Sealed{}, d)
}

func TestNewProvider_FakeInDevelopment(t *testing.T) {
	cfg := testConfig{Security: config.Security{EligibleAffiliations: []string{"Capybaras"}}}

	provider, err := newProvider(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ident, err := provider.GetIdentity(context.Background(), identity.Credentials{Username: demoUsername, Password: demoPassword})
	require.NoError(t, err)
	require.True(t, ident.Authenticated())
	require.Equal(t, "Capybaras", ident.Affiliation)
}

func TestNewProvider_RequiresClientID(t *testing.T) {
	cfg := testConfig{Identity: config.Identity{TokenURL: "http://127.0.0.1:1/token"}}

	_, err := newProvider(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestSessionOptions(t *testing.T) {
	require.Len(t, sessionOptions(config.Security{}, zerolog.Nop()), 1)
	require.Len(t, sessionOptions(config.Security{EligibleAffiliations: []string{"Capybaras"}}, zerolog.Nop()), 2)
}
