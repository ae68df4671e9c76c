package sqlstore

import (
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/uptrace/bun"
)

type userRecord struct {
	bun.BaseModel `bun:"table:directory_users,alias:du"`

	UpstreamUserID string `bun:"upstream_user_id,pk"`
	SessionID      string `bun:"session_id,notnull,unique"`
	AccessToken    string `bun:"access_token,notnull"`
	RefreshToken   string `bun:"refresh_token,notnull"`
	SessionState   string `bun:"session_state,notnull"`
	ExpiresIn      int64  `bun:"expires_in,notnull"`
	CreatedAt      int64  `bun:"created_at,notnull"`
	IssuedAt       int64  `bun:"issued_at,notnull"`
}

func newUserRecord(upstreamUserID, sessionID string, creds directory.Credentials, now time.Time) *userRecord {
	return &userRecord{
		UpstreamUserID: upstreamUserID,
		SessionID:      sessionID,
		AccessToken:    creds.AccessToken,
		RefreshToken:   creds.RefreshToken,
		SessionState:   creds.SessionState,
		ExpiresIn:      creds.ExpiresIn,
		CreatedAt:      now.Unix(),
		IssuedAt:       now.Unix(),
	}
}

func (r *userRecord) toDomain() directory.UserRecord {
	return directory.UserRecord{
		UpstreamUserID: r.UpstreamUserID,
		SessionID:      r.SessionID,
		Credentials: directory.Credentials{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			SessionState: r.SessionState,
			ExpiresIn:    r.ExpiresIn,
		},
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		IssuedAt:  time.Unix(r.IssuedAt, 0).UTC(),
	}
}
