package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/cognichat/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the caller's session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	sess, err := h.mgr.Login(r.Context(), session.IDFromContext(r.Context()), req.Username, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, NewSessionView(sess))
}

// Logout signs the caller out and clears their history.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := session.IDFromContext(r.Context())
	if err := h.mgr.Logout(session.WithChannel(r.Context(), session.ChannelHTTP), id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's session and history.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	view := NewSessionView(sess)

	if sess.Authenticated {
		msgs, err := h.mgr.History(r.Context(), sess.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		view.Messages = NewMessageViews(h.md, msgs, sess.Settings.ShowCode)
	}
	JSON(w, http.StatusOK, view)
}
