package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	healthTimeout = 2 * time.Second
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status      status.Code `json:"status"`
	Description string      `json:"description"`
	SessionID   *string     `json:"session_id"`
}

type tokenRequest struct {
	SessionID string `json:"session_id"`
}

type tokenResponse struct {
	Status      status.Code `json:"status"`
	Description string      `json:"description"`
	AccessToken *string     `json:"access_token"`
}

// LoginHandler exchanges a username and password for a session id.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "username and password are required", http.StatusBadRequest)
			return
		}

		res := s.sessions.Login(r.Context(), req.Username, req.Password)
		writeJSON(w, httpStatus(res.Status), loginResponse{
			Status:      res.Status,
			Description: res.Description,
			SessionID:   res.SessionID,
		})
	}
}

// TokenHandler resolves a session id to its upstream access token.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.SessionID) == "" {
			writeJSONError(w, "invalid_request", "session_id is required", http.StatusBadRequest)
			return
		}

		res := s.sessions.ResolveToken(r.Context(), req.SessionID)
		writeJSON(w, httpStatus(res.Status), tokenResponse{
			Status:      res.Status,
			Description: res.Description,
			AccessToken: res.AccessToken,
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.healthCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := s.healthCheck(ctx); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// httpStatus maps a result code onto the closest HTTP status. The body always
// carries the numeric code as well.
func httpStatus(code status.Code) int {
	switch code {
	case status.OK:
		return http.StatusOK
	case status.AuthFailed, status.TokenExpired, status.LookupFailed:
		return http.StatusUnauthorized
	case status.EligibilityRejected:
		return http.StatusForbidden
	case status.DownstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "malformed JSON body (%s)", err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
