// Package boltstore stores the user directory in a local bbolt file.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
	bolt "go.etcd.io/bbolt"
)

const (
	dbDirPerm   = fs.FileMode(0o700)
	dbFilePerm  = fs.FileMode(0o600)
	openTimeout = 5 * time.Second
)

var (
	usersBucket    = []byte("users")    // upstream user id -> storedUser JSON
	sessionsBucket = []byte("sessions") // session id -> upstream user id
)

var _ directory.Directory = (*Directory)(nil)

type storedUser struct {
	UpstreamUserID string `json:"upstream_user_id"`
	SessionID      string `json:"session_id"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	SessionState   string `json:"session_state"`
	ExpiresIn      int64  `json:"expires_in"`
	CreatedAt      int64  `json:"created_at"`
	IssuedAt       int64  `json:"issued_at"`
}

func (u storedUser) record() directory.UserRecord {
	return directory.UserRecord{
		UpstreamUserID: u.UpstreamUserID,
		SessionID:      u.SessionID,
		Credentials: directory.Credentials{
			AccessToken:  u.AccessToken,
			RefreshToken: u.RefreshToken,
			SessionState: u.SessionState,
			ExpiresIn:    u.ExpiresIn,
		},
		CreatedAt: time.Unix(u.CreatedAt, 0).UTC(),
		IssuedAt:  time.Unix(u.IssuedAt, 0).UTC(),
	}
}

// Directory wraps a bbolt database. bbolt allows a single writer at a time, so the
// existence checks inside CreateUser are race free.
type Directory struct {
	db    *bolt.DB
	clock directory.Clock
}

// Open opens (or creates) the database at path.
func Open(path string, now func() time.Time) (*Directory, error) {
	if err := os.MkdirAll(filepath.Dir(path), dbDirPerm); err != nil {
		return nil, fmt.Errorf("creating directory db folder: %w", err)
	}

	db, err := bolt.Open(path, dbFilePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening directory db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(usersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing directory db: %w", err)
	}

	return &Directory{db: db, clock: now}, nil
}

// Close closes the database.
func (d *Directory) Close() error {
	return d.db.Close()
}

func (d *Directory) Exists(_ context.Context, upstreamUserID string) (bool, error) {
	var exists bool
	err := d.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(usersBucket).Get([]byte(upstreamUserID)) != nil
		return nil
	})
	return exists, err
}

func (d *Directory) CreateUser(_ context.Context, upstreamUserID string, creds directory.Credentials, sessionID string) (directory.Result, error) {
	if res, ok := directory.ValidateCreate(upstreamUserID, sessionID); !ok {
		return res, nil
	}

	res := directory.Success()
	err := d.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(usersBucket)
		sessions := tx.Bucket(sessionsBucket)

		if users.Get([]byte(upstreamUserID)) != nil {
			res = directory.Failure(status.Conflict, status.DescriptionUserExists)
			return nil
		}
		if sessions.Get([]byte(sessionID)) != nil {
			res = directory.Failure(status.Conflict, status.DescriptionSessionExists)
			return nil
		}

		now := d.clock.Now().Unix()
		data, err := json.Marshal(storedUser{
			UpstreamUserID: upstreamUserID,
			SessionID:      sessionID,
			AccessToken:    creds.AccessToken,
			RefreshToken:   creds.RefreshToken,
			SessionState:   creds.SessionState,
			ExpiresIn:      creds.ExpiresIn,
			CreatedAt:      now,
			IssuedAt:       now,
		})
		if err != nil {
			return err
		}
		if err := users.Put([]byte(upstreamUserID), data); err != nil {
			return err
		}
		return sessions.Put([]byte(sessionID), []byte(upstreamUserID))
	})
	if err != nil {
		return directory.Result{}, fmt.Errorf("creating user: %w", err)
	}
	return res, nil
}

func (d *Directory) UpdateCredentials(_ context.Context, upstreamUserID string, creds directory.Credentials) (directory.Result, error) {
	res := directory.Success()
	err := d.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(usersBucket)

		v := users.Get([]byte(upstreamUserID))
		if v == nil {
			res = directory.UserNotFound()
			return nil
		}

		var u storedUser
		if err := json.Unmarshal(v, &u); err != nil {
			return err
		}
		u.AccessToken = creds.AccessToken
		u.RefreshToken = creds.RefreshToken
		u.SessionState = creds.SessionState
		u.ExpiresIn = creds.ExpiresIn
		u.IssuedAt = d.clock.Now().Unix()

		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return users.Put([]byte(upstreamUserID), data)
	})
	if err != nil {
		return directory.Result{}, fmt.Errorf("updating credentials: %w", err)
	}
	return res, nil
}

func (d *Directory) ResolveSessionID(_ context.Context, upstreamUserID string) (string, bool, error) {
	u, found, err := d.user(upstreamUserID)
	if err != nil || !found || u.SessionID == "" {
		return "", false, err
	}
	return u.SessionID, true, nil
}

func (d *Directory) LookupBySessionID(_ context.Context, sessionID string) (directory.TokenRecord, error) {
	var (
		u     storedUser
		found bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		upstreamUserID := tx.Bucket(sessionsBucket).Get([]byte(sessionID))
		if upstreamUserID == nil {
			return nil
		}
		v := tx.Bucket(usersBucket).Get(upstreamUserID)
		if v == nil {
			return fmt.Errorf("session %s points at a missing user", sessionID)
		}
		found = true
		return json.Unmarshal(v, &u)
	})
	if err != nil {
		return directory.TokenRecord{}, fmt.Errorf("looking up session: %w", err)
	}
	if !found {
		return directory.NotFound(sessionID), nil
	}
	return directory.Found(u.record()), nil
}

func (d *Directory) user(upstreamUserID string) (storedUser, bool, error) {
	var (
		u     storedUser
		found bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(upstreamUserID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &u)
	})
	if err != nil {
		return storedUser{}, false, fmt.Errorf("reading user: %w", err)
	}
	return u, found, nil
}
