// Package server exposes the control surface of the daemon: the explicit
// delete trigger plus the whitelist/settings editing boundary. It mirrors
// the extension message contract: an action request answered with
// {success, error}.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/settings"
	"github.com/taka-sakai/dehistory/internal/status"
	"github.com/taka-sakai/dehistory/internal/whitelist"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// maxBodySize bounds request bodies; whitelists are small text documents.
const maxBodySize = 1 << 20

// DeleteHandler serves the explicit delete trigger. The orchestrator
// satisfies it.
type DeleteHandler interface {
	HandleDeleteRequest(ctx context.Context, sender string) error
}

// Server is the HTTP control surface.
type Server struct {
	deleter  DeleteHandler
	settings *settings.Store
	status   status.Repository
	token    string
	logger   log.Logger
}

// New creates a Server. token is the shared credential the settings surface
// presents as a bearer token.
func New(deleter DeleteHandler, st *settings.Store, token string, logger log.Logger) *Server {
	return &Server{deleter: deleter, settings: st, token: token, logger: logger}
}

// WithStatus enables the status endpoint backed by repo.
func (s *Server) WithStatus(repo status.Repository) *Server {
	s.status = repo
	return s
}

// messageRequest is the trigger message envelope.
type messageRequest struct {
	Action string `json:"action"`
}

// messageResponse is the uniform trigger/editing response.
type messageResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
		r.Get("/settings", s.handleGetSettings)
		r.Get("/whitelist", s.handleGetWhitelist)
		r.Put("/whitelist", s.handlePutWhitelist)
		if s.status != nil {
			r.Get("/status", s.handleGetStatus)
		}
	})
	return r
}

// handleMessage dispatches trigger messages. Sender authentication for
// deleteData is the orchestrator's job; the server only transports the
// credential.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, messageResponse{Error: "malformed request"})
		return
	}

	switch req.Action {
	case "deleteData":
		err := s.deleter.HandleDeleteRequest(r.Context(), bearerToken(r))
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			s.respond(w, http.StatusUnauthorized, messageResponse{Error: err.Error()})
		case err != nil:
			s.respond(w, http.StatusOK, messageResponse{Error: err.Error()})
		default:
			s.respond(w, http.StatusOK, messageResponse{Success: true})
		}
	default:
		s.respond(w, http.StatusBadRequest, messageResponse{Error: "unknown action " + req.Action})
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respond(w, http.StatusUnauthorized, messageResponse{Error: domain.ErrUnauthorized.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.settings.Settings()); err != nil {
		s.logger.Error("encode settings response", log.Err(err))
	}
}

func (s *Server) handleGetWhitelist(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respond(w, http.StatusUnauthorized, messageResponse{Error: domain.ErrUnauthorized.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, whitelist.Format(s.settings.Settings().Whitelist))
}

// handlePutWhitelist imports a whitelist in the text format. Validation or
// duplicate failures abort the save with a line-numbered message; nothing
// is persisted in that case.
func (s *Server) handlePutWhitelist(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respond(w, http.StatusUnauthorized, messageResponse{Error: domain.ErrUnauthorized.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.respond(w, http.StatusBadRequest, messageResponse{Error: "read whitelist body: " + err.Error()})
		return
	}

	entries, err := whitelist.Parse(string(body))
	if err != nil {
		s.respond(w, http.StatusBadRequest, messageResponse{Error: err.Error()})
		return
	}

	st := s.settings.Settings()
	st.Whitelist = entries
	if err := s.settings.Save(r.Context(), st); err != nil {
		s.respond(w, http.StatusInternalServerError, messageResponse{Error: err.Error()})
		return
	}
	s.respond(w, http.StatusOK, messageResponse{Success: true})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respond(w, http.StatusUnauthorized, messageResponse{Error: domain.ErrUnauthorized.Error()})
		return
	}

	st, err := s.status.Load(r.Context())
	if err != nil {
		s.respond(w, http.StatusInternalServerError, messageResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.logger.Error("encode status response", log.Err(err))
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, resp messageResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode response", log.Err(err))
	}
}

func (s *Server) authorized(r *http.Request) bool {
	return subtle.ConstantTimeCompare([]byte(bearerToken(r)), []byte(s.token)) == 1
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.Duration("elapsed", time.Since(start)),
		)
	})
}
