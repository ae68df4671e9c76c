// Package directory defines the user directory: the persistent store that maps
// upstream identities to locally issued session ids and their upstream tokens.
package directory

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-server/status"
)

//go:generate mockgen -source=directory.go -destination=../internal/mocks/mock_directory.go -package=mocks

// Result is the application level outcome of a directory write.
type Result struct {
	Status      status.Code
	Description string
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Status.IsOK()
}

// Success is the result of a successful write.
func Success() Result {
	return Result{Status: status.OK, Description: status.DescriptionSuccess}
}

// Failure builds a non-successful result.
func Failure(code status.Code, description string) Result {
	return Result{Status: code, Description: description}
}

// Credentials are the upstream tokens stored against a user.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	SessionState string
	ExpiresIn    int64 // Seconds from IssuedAt
}

// UserRecord is a stored directory entry. There is exactly one per upstream user id,
// and its session id never changes once assigned.
type UserRecord struct {
	UpstreamUserID string
	SessionID      string
	Credentials
	CreatedAt time.Time
	IssuedAt  time.Time // When the current credentials were stored
}

// TokenRecord is the view of a session used to decide whether its token is usable.
type TokenRecord struct {
	Result
	SessionID   string
	AccessToken string
	IssuedAt    time.Time
	ExpiresIn   int64
}

// ExpiresAt is IssuedAt + ExpiresIn in unix seconds.
func (t TokenRecord) ExpiresAt() int64 {
	return t.IssuedAt.Unix() + t.ExpiresIn
}

// Directory is the contract every backend implements. A returned error means the
// backend could not be reached or failed internally; a non-OK Result or TokenRecord
// status is an application outcome (conflict, unknown user, unknown session).
type Directory interface {
	// Exists reports whether a record is stored for the upstream user id.
	Exists(ctx context.Context, upstreamUserID string) (bool, error)
	// CreateUser inserts a record. It fails with status.Conflict when the upstream
	// user id or the session id is already taken.
	CreateUser(ctx context.Context, upstreamUserID string, creds Credentials, sessionID string) (Result, error)
	// UpdateCredentials replaces the stored tokens and restarts IssuedAt.
	UpdateCredentials(ctx context.Context, upstreamUserID string, creds Credentials) (Result, error)
	// ResolveSessionID returns the session id of the user, found is false when absent.
	ResolveSessionID(ctx context.Context, upstreamUserID string) (sessionID string, found bool, err error)
	// LookupBySessionID returns the stored token for a session id.
	LookupBySessionID(ctx context.Context, sessionID string) (TokenRecord, error)
}

// ValidateCreate checks the arguments of CreateUser.
func ValidateCreate(upstreamUserID, sessionID string) (Result, bool) {
	if strings.TrimSpace(upstreamUserID) == "" {
		return Failure(status.CreateFailed, "upstream user id is required"), false
	}
	if strings.TrimSpace(sessionID) == "" {
		return Failure(status.CreateFailed, "session id is required"), false
	}
	return Success(), true
}

// NotFound is the lookup result for an unknown session id.
func NotFound(sessionID string) TokenRecord {
	return TokenRecord{
		Result:    Failure(status.LookupFailed, status.DescriptionSessionNotFound),
		SessionID: sessionID,
	}
}

// UserNotFound is the update result for an unknown upstream user id.
func UserNotFound() Result {
	return Failure(status.UpdateFailed, status.DescriptionUserNotFound)
}

// Found wraps a stored record as a successful lookup.
func Found(rec UserRecord) TokenRecord {
	return TokenRecord{
		Result:      Success(),
		SessionID:   rec.SessionID,
		AccessToken: rec.AccessToken,
		IssuedAt:    rec.IssuedAt,
		ExpiresIn:   rec.ExpiresIn,
	}
}

// Clock returns the current time. Backends take one so tests can pin IssuedAt.
type Clock func() time.Time

// Now truncates to whole seconds; expiry is evaluated at second granularity.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Second)
	}
	return c().UTC().Truncate(time.Second)
}
