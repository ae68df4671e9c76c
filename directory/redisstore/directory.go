// Package redisstore keeps the user directory in Redis. Each user is a hash keyed by
// upstream user id, with a second key mapping the session id back to the user.
// Writes run as Lua scripts so the uniqueness checks and the insert are atomic.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "dir"

const (
	createStatusCreated     int64 = 0
	createStatusUserExists  int64 = 1
	createStatusSessionUsed int64 = 2
)

const createUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 2
end
redis.call("HSET", KEYS[1],
  "upstream_user_id", ARGV[1],
  "session_id", ARGV[2],
  "access_token", ARGV[3],
  "refresh_token", ARGV[4],
  "session_state", ARGV[5],
  "expires_in", ARGV[6],
  "created_at", ARGV[7],
  "issued_at", ARGV[7])
redis.call("SET", KEYS[2], ARGV[1])
return 0
`

var createUserLua = redis.NewScript(createUserScript)

const updateCredentialsScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1],
  "access_token", ARGV[1],
  "refresh_token", ARGV[2],
  "session_state", ARGV[3],
  "expires_in", ARGV[4],
  "issued_at", ARGV[5])
return 1
`

var updateCredentialsLua = redis.NewScript(updateCredentialsScript)

var _ directory.Directory = (*Directory)(nil)

type storedUser struct {
	UpstreamUserID string `redis:"upstream_user_id"`
	SessionID      string `redis:"session_id"`
	AccessToken    string `redis:"access_token"`
	RefreshToken   string `redis:"refresh_token"`
	SessionState   string `redis:"session_state"`
	ExpiresIn      int64  `redis:"expires_in"`
	CreatedAt      int64  `redis:"created_at"`
	IssuedAt       int64  `redis:"issued_at"`
}

func (s storedUser) toDomain() directory.UserRecord {
	return directory.UserRecord{
		UpstreamUserID: s.UpstreamUserID,
		SessionID:      s.SessionID,
		Credentials: directory.Credentials{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			SessionState: s.SessionState,
			ExpiresIn:    s.ExpiresIn,
		},
		CreatedAt: time.Unix(s.CreatedAt, 0).UTC(),
		IssuedAt:  time.Unix(s.IssuedAt, 0).UTC(),
	}
}

type Directory struct {
	rdb    redis.UniversalClient
	prefix string
	clock  directory.Clock
}

// New uses rdb with keys under prefix ("dir" when empty).
func New(rdb redis.UniversalClient, prefix string, now func() time.Time) *Directory {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Directory{rdb: rdb, prefix: prefix, clock: now}
}

func (d *Directory) userKey(upstreamUserID string) string {
	return d.prefix + ":user:" + upstreamUserID
}

func (d *Directory) sessionKey(sessionID string) string {
	return d.prefix + ":sid:" + sessionID
}

func (d *Directory) Exists(ctx context.Context, upstreamUserID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.userKey(upstreamUserID)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists: %w", err)
	}
	return n == 1, nil
}

func (d *Directory) CreateUser(ctx context.Context, upstreamUserID string, creds directory.Credentials, sessionID string) (directory.Result, error) {
	if res, ok := directory.ValidateCreate(upstreamUserID, sessionID); !ok {
		return res, nil
	}

	now := d.clock.Now().Unix()
	code, err := createUserLua.Run(ctx, d.rdb,
		[]string{d.userKey(upstreamUserID), d.sessionKey(sessionID)},
		upstreamUserID, sessionID, creds.AccessToken, creds.RefreshToken, creds.SessionState,
		strconv.FormatInt(creds.ExpiresIn, 10), strconv.FormatInt(now, 10),
	).Int64()
	if err != nil {
		return directory.Result{}, fmt.Errorf("redisstore: create user: %w", err)
	}

	switch code {
	case createStatusCreated:
		return directory.Success(), nil
	case createStatusUserExists:
		return directory.Failure(status.Conflict, status.DescriptionUserExists), nil
	case createStatusSessionUsed:
		return directory.Failure(status.Conflict, status.DescriptionSessionExists), nil
	default:
		return directory.Result{}, fmt.Errorf("redisstore: create user: unexpected script result %d", code)
	}
}

func (d *Directory) UpdateCredentials(ctx context.Context, upstreamUserID string, creds directory.Credentials) (directory.Result, error) {
	updated, err := updateCredentialsLua.Run(ctx, d.rdb,
		[]string{d.userKey(upstreamUserID)},
		creds.AccessToken, creds.RefreshToken, creds.SessionState,
		strconv.FormatInt(creds.ExpiresIn, 10), strconv.FormatInt(d.clock.Now().Unix(), 10),
	).Int64()
	if err != nil {
		return directory.Result{}, fmt.Errorf("redisstore: update credentials: %w", err)
	}
	if updated == 0 {
		return directory.UserNotFound(), nil
	}
	return directory.Success(), nil
}

func (d *Directory) ResolveSessionID(ctx context.Context, upstreamUserID string) (string, bool, error) {
	sessionID, err := d.rdb.HGet(ctx, d.userKey(upstreamUserID), "session_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redisstore: resolve session id: %w", err)
	}
	return sessionID, sessionID != "", nil
}

func (d *Directory) LookupBySessionID(ctx context.Context, sessionID string) (directory.TokenRecord, error) {
	upstreamUserID, err := d.rdb.Get(ctx, d.sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return directory.NotFound(sessionID), nil
		}
		return directory.TokenRecord{}, fmt.Errorf("redisstore: lookup session: %w", err)
	}

	cmd := d.rdb.HGetAll(ctx, d.userKey(upstreamUserID))
	fields, err := cmd.Result()
	if err != nil {
		return directory.TokenRecord{}, fmt.Errorf("redisstore: lookup session: %w", err)
	}
	if len(fields) == 0 {
		return directory.NotFound(sessionID), nil
	}

	var stored storedUser
	if err := cmd.Scan(&stored); err != nil {
		return directory.TokenRecord{}, fmt.Errorf("redisstore: decode user: %w", err)
	}
	return directory.Found(stored.toDomain()), nil
}
