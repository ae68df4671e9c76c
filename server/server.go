package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/rs/zerolog/log"
)

const maxRequestBytes = 1 << 20

// Config is the part of the service configuration the HTTP layer reads.
type Config interface {
	config.EnvConfig
	config.CorsConfig
}

// SessionIssuer is implemented by auth.SessionService.
type SessionIssuer interface {
	Login(ctx context.Context, username, password string) auth.LoginResult
	ResolveToken(ctx context.Context, sessionID string) auth.TokenResult
}

var _ SessionIssuer = (*auth.SessionService)(nil)

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      Config
	sessions    SessionIssuer
	healthCheck func(context.Context) error
}

type Option func(*Server)

// WithHealthCheck makes /healthz report the result of check, typically a ping of
// the directory backend.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.healthCheck = check
	}
}

func New(config Config, sessions SessionIssuer, opts ...Option) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] session service is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
