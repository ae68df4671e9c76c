// Package sqlstore keeps the user directory in SQLite through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var _ directory.Directory = (*Directory)(nil)

type Directory struct {
	db    *bun.DB
	clock directory.Clock
}

// Open connects to dsn and creates the directory table when missing. SQLite allows a
// single writer, so the pool is capped at one connection.
func Open(ctx context.Context, dsn string, now func() time.Time) (*Directory, error) {
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &Directory{db: bun.NewDB(sqlDB, sqlitedialect.New()), clock: now}
	if _, err := d.db.NewCreateTable().Model((*userRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = d.db.Close()
		return nil, fmt.Errorf("sqlstore: create directory_users: %w", err)
	}
	return d, nil
}

func (d *Directory) Close() error {
	return d.db.Close()
}

func (d *Directory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Directory) Exists(ctx context.Context, upstreamUserID string) (bool, error) {
	exists, err := d.db.NewSelect().
		Model((*userRecord)(nil)).
		Where("upstream_user_id = ?", upstreamUserID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("sqlstore: check user exists: %w", err)
	}
	return exists, nil
}

func (d *Directory) CreateUser(ctx context.Context, upstreamUserID string, creds directory.Credentials, sessionID string) (directory.Result, error) {
	if res, ok := directory.ValidateCreate(upstreamUserID, sessionID); !ok {
		return res, nil
	}

	record := newUserRecord(upstreamUserID, sessionID, creds, d.clock.Now())
	if _, err := d.db.NewInsert().Model(record).Exec(ctx); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return directory.Failure(status.Conflict, status.DescriptionSessionExists), nil
			}
			return directory.Failure(status.Conflict, status.DescriptionUserExists), nil
		}
		return directory.Result{}, fmt.Errorf("sqlstore: insert user: %w", err)
	}
	return directory.Success(), nil
}

func (d *Directory) UpdateCredentials(ctx context.Context, upstreamUserID string, creds directory.Credentials) (directory.Result, error) {
	res, err := d.db.NewUpdate().
		Model((*userRecord)(nil)).
		Set("access_token = ?", creds.AccessToken).
		Set("refresh_token = ?", creds.RefreshToken).
		Set("session_state = ?", creds.SessionState).
		Set("expires_in = ?", creds.ExpiresIn).
		Set("issued_at = ?", d.clock.Now().Unix()).
		Where("upstream_user_id = ?", upstreamUserID).
		Exec(ctx)
	if err != nil {
		return directory.Result{}, fmt.Errorf("sqlstore: update credentials: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return directory.Result{}, fmt.Errorf("sqlstore: update credentials: %w", err)
	}
	if affected == 0 {
		return directory.UserNotFound(), nil
	}
	return directory.Success(), nil
}

func (d *Directory) ResolveSessionID(ctx context.Context, upstreamUserID string) (string, bool, error) {
	record := new(userRecord)
	err := d.db.NewSelect().
		Model(record).
		Column("session_id").
		Where("upstream_user_id = ?", upstreamUserID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlstore: resolve session id: %w", err)
	}
	return record.SessionID, record.SessionID != "", nil
}

func (d *Directory) LookupBySessionID(ctx context.Context, sessionID string) (directory.TokenRecord, error) {
	record := new(userRecord)
	err := d.db.NewSelect().
		Model(record).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.NotFound(sessionID), nil
		}
		return directory.TokenRecord{}, fmt.Errorf("sqlstore: lookup session: %w", err)
	}
	return directory.Found(record.toDomain()), nil
}
