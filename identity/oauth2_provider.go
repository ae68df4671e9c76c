// Package identity talks to the upstream identity provider that owns user credentials.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	defaultAffiliationClaim = "affiliation"
	rejectedDescription     = "Invalid user credentials"
	invalidGrant            = "invalid_grant"
)

var _ Provider = (*OAuth2Provider)(nil)

// OAuth2ProviderConfig describes how to reach the upstream token endpoint.
// Either IssuerURL (OIDC discovery) or TokenURL must be set.
type OAuth2ProviderConfig struct {
	IssuerURL        string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	Scopes           []string
	AffiliationClaim string       // gjson path into the identity claims, e.g. "coalition.name"
	HTTPClient       *http.Client // Optional, http.DefaultClient when nil
}

// OAuth2Provider authenticates users with the resource owner password grant.
type OAuth2Provider struct {
	oauthConfig      *oauth2.Config
	oidcProvider     *oidc.Provider        // nil without discovery
	verifier         *oidc.IDTokenVerifier // nil without discovery
	affiliationClaim string
	httpClient       *http.Client
	nowTime          func() time.Time
}

// NewOAuth2Provider builds the provider. With an issuer URL the token endpoint is
// discovered and ID tokens in the token response are verified.
func NewOAuth2Provider(ctx context.Context, cfg OAuth2ProviderConfig) (*OAuth2Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[NewOAuth2Provider] client id is required")
	}
	if cfg.IssuerURL == "" && cfg.TokenURL == "" {
		return nil, errors.New("[NewOAuth2Provider] issuer url or token url is required")
	}

	p := &OAuth2Provider{
		affiliationClaim: cfg.AffiliationClaim,
		httpClient:       cfg.HTTPClient,
		nowTime:          time.Now,
	}
	if strings.TrimSpace(p.affiliationClaim) == "" {
		p.affiliationClaim = defaultAffiliationClaim
	}

	endpoint := oauth2.Endpoint{
		TokenURL:  cfg.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}

	if cfg.IssuerURL != "" {
		provider, err := oidc.NewProvider(p.clientContext(ctx), cfg.IssuerURL)
		if err != nil {
			return nil, errors.Wrap(err, "[NewOAuth2Provider] oidc.NewProvider")
		}
		endpoint = provider.Endpoint()
		if cfg.TokenURL != "" {
			endpoint.TokenURL = cfg.TokenURL
		}
		p.oidcProvider = provider
		p.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID, Now: p.nowTime})
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID}
	}

	p.oauthConfig = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
	return p, nil
}

// GetIdentity runs the password grant for the credentials.
func (p *OAuth2Provider) GetIdentity(ctx context.Context, creds Credentials) (*UpstreamIdentity, error) {
	ctx = p.clientContext(ctx)

	tok, err := p.oauthConfig.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isRejectedGrant(retrieveErr) {
			return &UpstreamIdentity{Description: rejectionDescription(retrieveErr)}, nil
		}
		return nil, errors.Wrap(err, "[OAuth2Provider.GetIdentity] PasswordCredentialsToken")
	}

	claims, err := p.identityClaims(ctx, tok)
	if err != nil {
		return nil, errors.Wrap(err, "[OAuth2Provider.GetIdentity] identityClaims")
	}

	subject := gjson.GetBytes(claims, "sub").String()
	if subject == "" {
		return nil, errors.New("[OAuth2Provider.GetIdentity] token carries no subject")
	}

	return &UpstreamIdentity{
		UpstreamUserID: subject,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		SessionState:   sessionState(tok, claims),
		ExpiresIn:      p.expiresIn(tok),
		Affiliation:    strings.TrimSpace(gjson.GetBytes(claims, p.affiliationClaim).String()),
	}, nil
}

// identityClaims returns the claims JSON describing the user. Sources in order: the
// ID token (verified when discovery is on), the userinfo endpoint, then the access
// token when it is a JWT. Opaque access tokens are fine as long as an earlier
// source answers.
func (p *OAuth2Provider) identityClaims(ctx context.Context, tok *oauth2.Token) ([]byte, error) {
	if rawIDToken, ok := tok.Extra("id_token").(string); ok && rawIDToken != "" {
		if p.verifier != nil {
			return p.verifiedClaims(ctx, rawIDToken)
		}
		return unverifiedClaims(rawIDToken)
	}

	if p.oidcProvider != nil && p.oidcProvider.UserInfoEndpoint() != "" {
		userInfo, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			return nil, errors.Wrap(err, "userinfo")
		}
		var claims json.RawMessage
		if err := userInfo.Claims(&claims); err != nil {
			return nil, errors.Wrap(err, "userinfo claims")
		}
		return claims, nil
	}

	claims, err := unverifiedClaims(tok.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "no id_token or userinfo endpoint and the access token is not a JWT")
	}
	return claims, nil
}

func (p *OAuth2Provider) verifiedClaims(ctx context.Context, rawIDToken string) ([]byte, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "verify id token")
	}
	var claims json.RawMessage
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "id token claims")
	}
	return claims, nil
}

// unverifiedClaims decodes a JWT received directly from the token endpoint over the
// configured client, without checking its signature.
func unverifiedClaims(raw string) ([]byte, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "parse jwt")
	}
	claims, err := json.Marshal(token.Claims)
	if err != nil {
		return nil, errors.Wrap(err, "marshal jwt claims")
	}
	return claims, nil
}

func (p *OAuth2Provider) expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	seconds := int64(tok.Expiry.Sub(p.nowTime()).Round(time.Second).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

func (p *OAuth2Provider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func sessionState(tok *oauth2.Token, claims []byte) string {
	if state, ok := tok.Extra("session_state").(string); ok && state != "" {
		return state
	}
	if state := gjson.GetBytes(claims, "session_state").String(); state != "" {
		return state
	}
	return gjson.GetBytes(claims, "sid").String()
}

// isRejectedGrant reports whether the token endpoint refused the user's credentials.
// Other client errors such as invalid_client point at our own configuration.
func isRejectedGrant(err *oauth2.RetrieveError) bool {
	if err.Response == nil {
		return false
	}
	code := err.Response.StatusCode
	return (code == http.StatusBadRequest || code == http.StatusUnauthorized) && err.ErrorCode == invalidGrant
}

func rejectionDescription(err *oauth2.RetrieveError) string {
	switch {
	case err.ErrorDescription != "":
		return err.ErrorDescription
	case err.ErrorCode != "":
		return err.ErrorCode
	default:
		return rejectedDescription
	}
}
