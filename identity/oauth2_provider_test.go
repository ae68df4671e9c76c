package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-server/identity"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "session-service"
	testClientSecret = "client-secret"
	testUsername     = "alice"
	testPassword     = "pw"
	testSubject      = "upstream-alice"
	testSessionState = "state-123"
)

// fakeTokenEndpoint serves the password grant for a single account.
func fakeTokenEndpoint(t *testing.T, claims jwtlib.MapClaims) *httptest.Server {
	t.Helper()

	accessToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("upstream-key"))
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("client_id") != testClientID:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		case r.PostForm.Get("username") == "boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"server_error"}`))
		case r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid user credentials",
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  accessToken,
				"refresh_token": "refresh-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"session_state": testSessionState,
			})
		}
	}))
}

func newTestProvider(t *testing.T, tokenURL, affiliationClaim string) *identity.OAuth2Provider {
	t.Helper()

	p, err := identity.NewOAuth2Provider(context.Background(), identity.OAuth2ProviderConfig{
		TokenURL:         tokenURL,
		ClientID:         testClientID,
		ClientSecret:     testClientSecret,
		AffiliationClaim: affiliationClaim,
	})
	require.NoError(t, err)
	return p
}

func TestOAuth2Provider_GetIdentity_Success(t *testing.T) {
	srv := fakeTokenEndpoint(t, jwtlib.MapClaims{
		"sub":       testSubject,
		"coalition": map[string]any{"name": " Capybaras"},
	})
	defer srv.Close()

	p := newTestProvider(t, srv.URL, "coalition.name")

	id, err := p.GetIdentity(context.Background(), identity.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	require.True(t, id.Authenticated())
	require.Equal(t, testSubject, id.UpstreamUserID)
	require.Equal(t, "refresh-1", id.RefreshToken)
	require.Equal(t, testSessionState, id.SessionState)
	require.InDelta(t, 3600, id.ExpiresIn, 1)
	require.Equal(t, "Capybaras", id.Affiliation)
	require.Empty(t, id.Description)
}

func TestOAuth2Provider_GetIdentity_RejectedCredentials(t *testing.T) {
	srv := fakeTokenEndpoint(t, jwtlib.MapClaims{"sub": testSubject})
	defer srv.Close()

	p := newTestProvider(t, srv.URL, "")

	id, err := p.GetIdentity(context.Background(), identity.Credentials{Username: "bob", Password: "wrong"})
	require.NoError(t, err)
	require.False(t, id.Authenticated())
	require.Empty(t, id.AccessToken)
	require.Equal(t, "Invalid user credentials", id.Description)
}

func TestOAuth2Provider_GetIdentity_ServerError(t *testing.T) {
	srv := fakeTokenEndpoint(t, jwtlib.MapClaims{"sub": testSubject})
	defer srv.Close()

	p := newTestProvider(t, srv.URL, "")

	id, err := p.GetIdentity(context.Background(), identity.Credentials{Username: "boom", Password: "x"})
	require.Error(t, err)
	require.Nil(t, id)
}

func TestOAuth2Provider_GetIdentity_Unreachable(t *testing.T) {
	srv := fakeTokenEndpoint(t, jwtlib.MapClaims{"sub": testSubject})
	url := srv.URL
	srv.Close()

	p := newTestProvider(t, url, "")

	_, err := p.GetIdentity(context.Background(), identity.Credentials{Username: testUsername, Password: testPassword})
	require.Error(t, err)
}

func TestOAuth2Provider_GetIdentity_MissingSubject(t *testing.T) {
	srv := fakeTokenEndpoint(t, jwtlib.MapClaims{"affiliation": "x"})
	defer srv.Close()

	p := newTestProvider(t, srv.URL, "")

	_, err := p.GetIdentity(context.Background(), identity.Credentials{Username: testUsername, Password: testPassword})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no subject")
}

func TestNewOAuth2Provider_Validation(t *testing.T) {
	_, err := identity.NewOAuth2Provider(context.Background(), identity.OAuth2ProviderConfig{TokenURL: "http://idp"})
	require.Error(t, err)

	_, err = identity.NewOAuth2Provider(context.Background(), identity.OAuth2ProviderConfig{ClientID: testClientID})
	require.Error(t, err)
}
