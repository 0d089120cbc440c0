// Package api provides HTTP handlers for the CogniChat API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/cognichat/internal/middleware"
	"github.com/ashureev/cognichat/internal/render"
	"github.com/ashureev/cognichat/internal/session"
	"github.com/ashureev/cognichat/internal/store"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the chat API.
type Handler struct {
	mgr     *session.Manager
	db      Pinger
	md      *render.Markdown
	limiter *RateLimiter
	secure  bool
}

// NewHandler creates a new Handler. secure marks the session cookie Secure.
func NewHandler(mgr *session.Manager, db Pinger, limiter *RateLimiter, secure bool) *Handler {
	return &Handler{
		mgr:     mgr,
		db:      db,
		md:      render.NewMarkdown(),
		limiter: limiter,
		secure:  secure,
	}
}

// RegisterRoutes registers the API routes. Every route runs with the caller's session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(h.mgr, h.secure))

			r.Post("/auth/login", h.Login)
			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Post("/chat", h.Chat)
				r.Get("/chat/history", h.History)
				r.Delete("/chat/history", h.ClearHistory)
				r.Get("/dataset", h.Dataset)
				r.Get("/settings", h.GetSettings)
				r.Put("/settings", h.PutSettings)
			})
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps a session error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrEmptyQuery), errors.Is(err, session.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeErr logs unexpected errors and writes a JSON error with the mapped status.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"session_id", session.IDFromContext(r.Context()),
			"error", err,
		)
		msg = "internal error"
	}
	Error(w, status, msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
