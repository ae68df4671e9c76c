// Package pgstore keeps the user directory in PostgreSQL. Uniqueness of upstream
// user ids and session ids is enforced by the table constraints.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
)

const uniqueViolation = "23505"

// sessionIDConstraint is named in the schema so a duplicate session id can be told
// apart from a duplicate upstream user id.
const sessionIDConstraint = "directory_users_session_id_key"

const schema = `
CREATE TABLE IF NOT EXISTS directory_users (
	upstream_user_id TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	access_token     TEXT NOT NULL,
	refresh_token    TEXT NOT NULL,
	session_state    TEXT NOT NULL,
	expires_in       BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	issued_at        TIMESTAMPTZ NOT NULL,
	CONSTRAINT directory_users_session_id_key UNIQUE (session_id)
)`

var _ directory.Directory = (*Directory)(nil)

type Directory struct {
	db    *pgxpool.Pool
	clock directory.Clock
}

// New wraps an existing pool. Call Migrate once before use.
func New(db *pgxpool.Pool, now func() time.Time) *Directory {
	return &Directory{db: db, clock: now}
}

// Migrate creates the directory table when missing.
func (d *Directory) Migrate(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create directory_users: %w", err)
	}
	return nil
}

func (d *Directory) Exists(ctx context.Context, upstreamUserID string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM directory_users WHERE upstream_user_id = $1)`,
		upstreamUserID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (d *Directory) CreateUser(ctx context.Context, upstreamUserID string, creds directory.Credentials, sessionID string) (directory.Result, error) {
	if res, ok := directory.ValidateCreate(upstreamUserID, sessionID); !ok {
		return res, nil
	}

	now := d.clock.Now()
	_, err := d.db.Exec(ctx,
		`INSERT INTO directory_users
		 (upstream_user_id, session_id, access_token, refresh_token, session_state, expires_in, created_at, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		upstreamUserID, sessionID, creds.AccessToken, creds.RefreshToken, creds.SessionState, creds.ExpiresIn, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return conflict(pgErr.ConstraintName), nil
		}
		return directory.Result{}, fmt.Errorf("insert user: %w", err)
	}
	return directory.Success(), nil
}

func (d *Directory) UpdateCredentials(ctx context.Context, upstreamUserID string, creds directory.Credentials) (directory.Result, error) {
	tag, err := d.db.Exec(ctx,
		`UPDATE directory_users
		 SET access_token = $2, refresh_token = $3, session_state = $4, expires_in = $5, issued_at = $6
		 WHERE upstream_user_id = $1`,
		upstreamUserID, creds.AccessToken, creds.RefreshToken, creds.SessionState, creds.ExpiresIn, d.clock.Now(),
	)
	if err != nil {
		return directory.Result{}, fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.UserNotFound(), nil
	}
	return directory.Success(), nil
}

func (d *Directory) ResolveSessionID(ctx context.Context, upstreamUserID string) (string, bool, error) {
	var sessionID string
	err := d.db.QueryRow(ctx,
		`SELECT session_id FROM directory_users WHERE upstream_user_id = $1`,
		upstreamUserID).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve session id: %w", err)
	}
	return sessionID, sessionID != "", nil
}

func (d *Directory) LookupBySessionID(ctx context.Context, sessionID string) (directory.TokenRecord, error) {
	var rec directory.UserRecord
	err := d.db.QueryRow(ctx,
		`SELECT upstream_user_id, session_id, access_token, refresh_token, session_state, expires_in, created_at, issued_at
		 FROM directory_users
		 WHERE session_id = $1`,
		sessionID).Scan(
		&rec.UpstreamUserID, &rec.SessionID, &rec.AccessToken, &rec.RefreshToken,
		&rec.SessionState, &rec.ExpiresIn, &rec.CreatedAt, &rec.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return directory.NotFound(sessionID), nil
		}
		return directory.TokenRecord{}, fmt.Errorf("lookup session: %w", err)
	}
	return directory.Found(rec), nil
}

func conflict(constraint string) directory.Result {
	if constraint == sessionIDConstraint {
		return directory.Failure(status.Conflict, status.DescriptionSessionExists)
	}
	return directory.Failure(status.Conflict, status.DescriptionUserExists)
}
