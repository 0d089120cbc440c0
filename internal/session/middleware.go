package session

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/cognichat/internal/domain"
)

const (
	// CookieName carries the session ID.
	CookieName   = "cognichat_session"
	cookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionKey contextKey = iota

// FromContext returns the session loaded by Middleware, or nil.
func FromContext(ctx context.Context) *domain.Session {
	if v, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return v
	}
	return nil
}

// IDFromContext returns the ID of the session loaded by Middleware.
func IDFromContext(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.ID
	}
	return ""
}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// Middleware loads the caller's session from the session cookie, starting a new
// one when the cookie is missing, malformed or unknown, and refreshes the cookie.
func Middleware(mgr *Manager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(CookieName); err == nil {
				id = c.Value
			}

			sess, err := mgr.Ensure(r.Context(), id)
			if err != nil {
				mgr.logger.Error("Failed to establish session", "error", err)
				http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
				return
			}

			SetCookie(w, sess.ID, secure)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}
