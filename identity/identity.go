package identity

import "context"

//go:generate mockgen -source=identity.go -destination=../internal/mocks/mock_identity.go -package=mocks

// Credentials is the raw username/password pair. It is never persisted.
type Credentials struct {
	Username string
	Password string
}

// UpstreamIdentity is what the upstream identity provider returns for a set of
// credentials. It is fetched on every login and never cached.
type UpstreamIdentity struct {
	UpstreamUserID string // Subject at the upstream provider
	AccessToken    string // Empty when the provider rejected the credentials
	RefreshToken   string
	SessionState   string
	ExpiresIn      int64  // Seconds
	Affiliation    string // Cohort / coalition tag
	Description    string // Provider supplied message, mostly useful on failure
}

// Authenticated reports whether the provider accepted the credentials.
func (i *UpstreamIdentity) Authenticated() bool {
	return i != nil && i.AccessToken != ""
}

// Provider exchanges credentials for an upstream identity.
// A rejected login is reported through an empty AccessToken, errors are reserved
// for failures to reach or understand the provider.
type Provider interface {
	GetIdentity(ctx context.Context, creds Credentials) (*UpstreamIdentity, error)
}
