package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/directory/boltstore"
	"github.com/jrsteele09/go-session-server/directory/pgstore"
	"github.com/jrsteele09/go-session-server/directory/redisstore"
	"github.com/jrsteele09/go-session-server/directory/repofake"
	"github.com/jrsteele09/go-session-server/directory/sqlstore"
	"github.com/jrsteele09/go-session-server/identity"
	"github.com/jrsteele09/go-session-server/identity/fakeprovider"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	demoUsername = "demo"
	demoPassword = "demo"
)

// backend is an opened directory together with its lifecycle hooks.
type backend struct {
	directory directory.Directory
	health    func(context.Context) error
	close     func()
}

func openDirectory(ctx context.Context, cfg config.DirectoryConfig) (*backend, error) {
	dsn := cfg.GetDirectoryDSN()

	switch cfg.GetDirectoryBackend() {
	case config.BackendMemory:
		return &backend{directory: repofake.NewFakeDirectory(), close: func() {}}, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewDB(ctx, dsn)
		if err != nil {
			return nil, errors.Wrapf(err, "open postgres directory")
		}
		d := pgstore.New(pool, nil)
		if err := d.Migrate(ctx); err != nil {
			pool.Close()
			return nil, errors.Wrapf(err, "migrate postgres directory")
		}
		return &backend{directory: d, health: pool.Ping, close: pool.Close}, nil

	case config.BackendSQLite:
		d, err := sqlstore.Open(ctx, dsn, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "open sqlite directory")
		}
		return &backend{directory: d, health: d.Ping, close: func() { _ = d.Close() }}, nil

	case config.BackendBolt:
		d, err := boltstore.Open(dsn, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "open bolt directory")
		}
		return &backend{directory: d, close: func() { _ = d.Close() }}, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, errors.Wrapf(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, errors.Wrapf(err, "ping redis")
		}
		return &backend{
			directory: redisstore.New(rdb, cfg.GetRedisPrefix(), nil),
			health:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close:     func() { _ = rdb.Close() },
		}, nil

	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedBackend, "%q", cfg.GetDirectoryBackend())
	}
}

// sealDirectory wraps d when a seal key is configured.
func sealDirectory(d directory.Directory, cfg config.SecurityConfig) (directory.Directory, error) {
	key := cfg.GetSealKey()
	if key == nil {
		return d, nil
	}
	sealed, err := directory.NewSealed(d, key)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidSealKey, "%s", err.Error())
	}
	return sealed, nil
}

func newProvider(ctx context.Context, cfg config.Config, logger zerolog.Logger) (identity.Provider, error) {
	if cfg.UseFakeIdentity() {
		fp := fakeprovider.NewFakeProvider()
		affiliation := ""
		if allowed := cfg.GetEligibleAffiliations(); len(allowed) > 0 {
			affiliation = allowed[0]
		}
		fp.AddUser(demoUsername, demoPassword, affiliation)
		logger.Warn().Str("username", demoUsername).Msg("no identity provider configured, using in-memory provider")
		return fp, nil
	}

	provider, err := identity.NewOAuth2Provider(ctx, identity.OAuth2ProviderConfig{
		IssuerURL:        cfg.GetIssuerURL(),
		TokenURL:         cfg.GetTokenURL(),
		ClientID:         cfg.GetClientID(),
		ClientSecret:     cfg.GetClientSecret(),
		Scopes:           cfg.GetScopes(),
		AffiliationClaim: cfg.GetAffiliationClaim(),
		HTTPClient:       &http.Client{Timeout: cfg.GetIdentityTimeout()},
	})
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	return provider, nil
}

func sessionOptions(cfg config.SecurityConfig, logger zerolog.Logger) []auth.SessionServiceOption {
	opts := []auth.SessionServiceOption{auth.WithLogger(logger)}
	if allowed := cfg.GetEligibleAffiliations(); len(allowed) > 0 {
		opts = append(opts, auth.WithEligibility(auth.AffiliationEligibility(allowed...)))
	}
	return opts
}
