package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/identity"
	"github.com/jrsteele09/go-session-server/internal/utils"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoginResult is the outcome of Login. SessionID is nil unless Status is OK.
type LoginResult struct {
	Status      status.Code
	Description string
	SessionID   *string
}

// TokenResult is the outcome of ResolveToken. AccessToken is nil unless Status is OK.
type TokenResult struct {
	Status      status.Code
	Description string
	AccessToken *string
}

// SessionService exchanges upstream credentials for a stable local session id and
// resolves session ids back to still valid upstream access tokens.
type SessionService struct {
	provider    identity.Provider
	directory   directory.Directory
	nowTime     func() time.Time
	newID       func() string
	eligibility EligibilityFunc
	logger      zerolog.Logger
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.nowTime = nowFunc
	}
}

// WithSessionIDGenerator replaces the uuid based session id generator.
func WithSessionIDGenerator(gen func() string) SessionServiceOption {
	return func(s *SessionService) {
		s.newID = gen
	}
}

// WithEligibility gates the creation of new directory records.
func WithEligibility(fn EligibilityFunc) SessionServiceOption {
	return func(s *SessionService) {
		s.eligibility = fn
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger zerolog.Logger) SessionServiceOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

// NewSessionService wires the service to its identity provider and user directory.
func NewSessionService(provider identity.Provider, dir directory.Directory, options ...SessionServiceOption) (*SessionService, error) {
	if provider == nil {
		return nil, errors.New("[NewSessionService] identity provider is required")
	}
	if dir == nil {
		return nil, errors.New("[NewSessionService] directory is required")
	}

	s := &SessionService{
		provider:  provider,
		directory: dir,
		nowTime:   time.Now,
		newID:     func() string { return uuid.New().String() },
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login authenticates the credentials upstream, then either creates a directory record
// with a fresh session id or refreshes the stored tokens of an existing record and
// returns its session id. Exactly one of those two paths runs per call.
func (s *SessionService) Login(ctx context.Context, username, password string) LoginResult {
	logger := s.loggerFor(ctx).With().Str("username", username).Logger()

	ident, err := s.provider.GetIdentity(ctx, identity.Credentials{Username: username, Password: password})
	if err != nil {
		logger.Error().Err(err).Msg("identity provider unavailable")
		return loginFailure(status.DownstreamUnavailable, err.Error())
	}
	if !ident.Authenticated() {
		logger.Info().Str("reason", describe(ident)).Msg("authentication failed")
		return loginFailure(status.AuthFailed, describe(ident))
	}

	logger = logger.With().Str("upstream_user_id", ident.UpstreamUserID).Logger()

	exists, err := s.directory.Exists(ctx, ident.UpstreamUserID)
	if err != nil {
		logger.Error().Err(err).Msg("directory unavailable on exists")
		return loginFailure(status.DownstreamUnavailable, err.Error())
	}

	if !exists {
		return s.createSession(ctx, logger, ident)
	}
	return s.refreshSession(ctx, logger, ident)
}

func (s *SessionService) createSession(ctx context.Context, logger zerolog.Logger, ident *identity.UpstreamIdentity) LoginResult {
	if s.eligibility != nil {
		if ok, reason := s.eligibility(ctx, ident); !ok {
			logger.Info().Str("reason", reason).Msg("identity not eligible for a session")
			return loginFailure(status.EligibilityRejected, reason)
		}
	}

	sessionID := s.newID()
	res, err := s.directory.CreateUser(ctx, ident.UpstreamUserID, credentialsOf(ident), sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("directory unavailable on create")
		return loginFailure(status.DownstreamUnavailable, err.Error())
	}
	if !res.OK() {
		logger.Warn().Stringer("directory_status", res.Status).Str("reason", res.Description).Msg("create user failed")
		return loginFailure(status.CreateFailed, res.Description)
	}

	logger.Info().Msg("session created")
	return LoginResult{Status: status.OK, Description: status.DescriptionSuccess, SessionID: utils.Ptr(sessionID)}
}

func (s *SessionService) refreshSession(ctx context.Context, logger zerolog.Logger, ident *identity.UpstreamIdentity) LoginResult {
	res, err := s.directory.UpdateCredentials(ctx, ident.UpstreamUserID, credentialsOf(ident))
	if err != nil {
		logger.Error().Err(err).Msg("directory unavailable on update")
		return loginFailure(status.DownstreamUnavailable, err.Error())
	}
	if !res.OK() {
		logger.Warn().Stringer("directory_status", res.Status).Str("reason", res.Description).Msg("update credentials failed")
		return loginFailure(status.UpdateFailed, res.Description)
	}

	sessionID, found, err := s.directory.ResolveSessionID(ctx, ident.UpstreamUserID)
	if err != nil {
		logger.Error().Err(err).Msg("directory unavailable on resolve")
		return loginFailure(status.DownstreamUnavailable, err.Error())
	}
	if !found {
		logger.Error().Msg("existing user has no session id")
		return loginFailure(status.ResolutionFailed, status.DescriptionResolution)
	}

	logger.Info().Msg("session refreshed")
	return LoginResult{Status: status.OK, Description: status.DescriptionSuccess, SessionID: utils.Ptr(sessionID)}
}

// ResolveToken returns the stored upstream access token for sessionID while it is
// still valid. A token is valid only while IssuedAt + ExpiresIn is after now, at whole
// second granularity.
func (s *SessionService) ResolveToken(ctx context.Context, sessionID string) TokenResult {
	logger := s.loggerFor(ctx).With().Str("session_id", sessionID).Logger()

	rec, err := s.directory.LookupBySessionID(ctx, sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("directory unavailable on lookup")
		return TokenResult{Status: status.DownstreamUnavailable, Description: err.Error()}
	}
	if !rec.OK() {
		logger.Info().Stringer("directory_status", rec.Status).Str("reason", rec.Description).Msg("token lookup failed")
		return TokenResult{Status: rec.Status, Description: rec.Description}
	}

	if rec.ExpiresAt() <= s.nowTime().Unix() {
		logger.Info().Int64("expires_at", rec.ExpiresAt()).Msg("token expired")
		return TokenResult{Status: status.TokenExpired, Description: status.DescriptionTokenExpired}
	}

	return TokenResult{Status: status.OK, Description: status.DescriptionSuccess, AccessToken: utils.Ptr(rec.AccessToken)}
}

// loggerFor prefers the request scoped logger stored in ctx, so events carry its
// request id, and falls back to the service logger.
func (s *SessionService) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != zerolog.DefaultContextLogger && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return s.logger
}

func loginFailure(code status.Code, description string) LoginResult {
	return LoginResult{Status: code, Description: description}
}

func credentialsOf(ident *identity.UpstreamIdentity) directory.Credentials {
	return directory.Credentials{
		AccessToken:  ident.AccessToken,
		RefreshToken: ident.RefreshToken,
		SessionState: ident.SessionState,
		ExpiresIn:    ident.ExpiresIn,
	}
}

func describe(ident *identity.UpstreamIdentity) string {
	if ident == nil || ident.Description == "" {
		return InvalidCredentialsErr.Error()
	}
	return ident.Description
}
