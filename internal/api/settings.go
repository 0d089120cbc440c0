package api

import (
	"net/http"

	"github.com/ashureev/cognichat/internal/domain"
	"github.com/ashureev/cognichat/internal/session"
)

// Dataset describes the dataset every session queries.
func (h *Handler) Dataset(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.mgr.DatasetInfo())
}

// GetSettings returns the caller's settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, session.FromContext(r.Context()).Settings)
}

// PutSettings replaces the caller's settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.mgr.UpdateSettings(r.Context(), session.IDFromContext(r.Context()), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, sess.Settings)
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
