package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/status"
)

var _ directory.Directory = (*FakeDirectory)(nil)

// FakeDirectory is an in-memory directory. Writes are serialised by a single lock,
// which gives the same one-record-per-user guarantee as a unique constraint.
type FakeDirectory struct {
	users    map[string]*directory.UserRecord // upstream user id -> record
	sessions map[string]string                // session id -> upstream user id
	clock    directory.Clock
	lock     sync.RWMutex
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		users:    make(map[string]*directory.UserRecord),
		sessions: make(map[string]string),
	}
}

// WithNowTime pins the clock used for IssuedAt.
func (fd *FakeDirectory) WithNowTime(now func() time.Time) *FakeDirectory {
	fd.clock = now
	return fd
}

func (fd *FakeDirectory) Exists(_ context.Context, upstreamUserID string) (bool, error) {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	_, ok := fd.users[upstreamUserID]
	return ok, nil
}

func (fd *FakeDirectory) CreateUser(_ context.Context, upstreamUserID string, creds directory.Credentials, sessionID string) (directory.Result, error) {
	if res, ok := directory.ValidateCreate(upstreamUserID, sessionID); !ok {
		return res, nil
	}

	fd.lock.Lock()
	defer fd.lock.Unlock()

	if _, ok := fd.users[upstreamUserID]; ok {
		return directory.Failure(status.Conflict, status.DescriptionUserExists), nil
	}
	if _, ok := fd.sessions[sessionID]; ok {
		return directory.Failure(status.Conflict, status.DescriptionSessionExists), nil
	}

	now := fd.clock.Now()
	fd.users[upstreamUserID] = &directory.UserRecord{
		UpstreamUserID: upstreamUserID,
		SessionID:      sessionID,
		Credentials:    creds,
		CreatedAt:      now,
		IssuedAt:       now,
	}
	fd.sessions[sessionID] = upstreamUserID
	return directory.Success(), nil
}

func (fd *FakeDirectory) UpdateCredentials(_ context.Context, upstreamUserID string, creds directory.Credentials) (directory.Result, error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	rec, ok := fd.users[upstreamUserID]
	if !ok {
		return directory.UserNotFound(), nil
	}
	rec.Credentials = creds
	rec.IssuedAt = fd.clock.Now()
	return directory.Success(), nil
}

func (fd *FakeDirectory) ResolveSessionID(_ context.Context, upstreamUserID string) (string, bool, error) {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	rec, ok := fd.users[upstreamUserID]
	if !ok || rec.SessionID == "" {
		return "", false, nil
	}
	return rec.SessionID, true, nil
}

func (fd *FakeDirectory) LookupBySessionID(_ context.Context, sessionID string) (directory.TokenRecord, error) {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	upstreamUserID, ok := fd.sessions[sessionID]
	if !ok {
		return directory.NotFound(sessionID), nil
	}
	return directory.Found(*fd.users[upstreamUserID]), nil
}

// Get returns a copy of the stored record, for assertions in tests.
func (fd *FakeDirectory) Get(upstreamUserID string) (directory.UserRecord, bool) {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	rec, ok := fd.users[upstreamUserID]
	if !ok {
		return directory.UserRecord{}, false
	}
	return *rec, true
}

// Len returns the number of stored records.
func (fd *FakeDirectory) Len() int {
	fd.lock.RLock()
	defer fd.lock.RUnlock()
	return len(fd.users)
}

// Seed stores a record as-is, bypassing the clock. Used to set up expiry scenarios.
func (fd *FakeDirectory) Seed(rec directory.UserRecord) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	cp := rec
	fd.users[rec.UpstreamUserID] = &cp
	fd.sessions[rec.SessionID] = rec.UpstreamUserID
}
