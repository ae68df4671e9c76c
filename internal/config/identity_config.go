package config

import (
	"fmt"
	"time"
)

type IdentityConfig interface {
	GetIssuerURL() string
	GetTokenURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetAffiliationClaim() string
	GetIdentityTimeout() time.Duration
	// UseFakeIdentity reports whether no upstream provider is configured and the
	// in-memory provider should be used instead.
	UseFakeIdentity() bool
}

type Identity struct {
	IssuerURL        string        `env:"IDP_ISSUER_URL"`
	TokenURL         string        `env:"IDP_TOKEN_URL"`
	ClientID         string        `env:"IDP_CLIENT_ID"`
	ClientSecret     string        `env:"IDP_CLIENT_SECRET"`
	Scopes           []string      `env:"IDP_SCOPES" envSeparator:"," envDefault:"openid"`
	AffiliationClaim string        `env:"IDP_AFFILIATION_CLAIM" envDefault:"affiliation"`
	Timeout          time.Duration `env:"IDP_TIMEOUT" envDefault:"10s"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetIssuerURL() string {
	return i.IssuerURL
}

func (i Identity) GetTokenURL() string {
	return i.TokenURL
}

func (i Identity) GetClientID() string {
	return i.ClientID
}

func (i Identity) GetClientSecret() string {
	return i.ClientSecret
}

func (i Identity) GetScopes() []string {
	return i.Scopes
}

func (i Identity) GetAffiliationClaim() string {
	return i.AffiliationClaim
}

func (i Identity) GetIdentityTimeout() time.Duration {
	return i.Timeout
}

func (i Identity) UseFakeIdentity() bool {
	return i.IssuerURL == "" && i.TokenURL == ""
}

func (i Identity) validate(dev bool, backend string) error {
	if i.UseFakeIdentity() {
		if !dev || backend != BackendMemory {
			return fmt.Errorf("IDP_ISSUER_URL or IDP_TOKEN_URL is required unless ENV=DEV with the %s backend", BackendMemory)
		}
		return nil
	}
	if i.ClientID == "" {
		return fmt.Errorf("IDP_CLIENT_ID is required")
	}
	if i.Timeout <= 0 {
		return fmt.Errorf("IDP_TIMEOUT must be positive")
	}
	return nil
}
