package api

import (
	"net/http"

	"github.com/ashureev/cognichat/internal/session"
)

type chatRequest struct {
	Message string `json:"message"`
}

// Chat answers one question and returns the assistant message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.limiter.Allow(sess.ID) {
		Error(w, http.StatusTooManyRequests, "too many questions, slow down")
		return
	}

	ctx := session.WithChannel(r.Context(), session.ChannelHTTP)
	answer, err := h.mgr.Ask(ctx, sess.ID, req.Message)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, NewMessageView(h.md, answer, sess.Settings.ShowCode))
}

// History returns the caller's conversation.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	msgs, err := h.mgr.History(r.Context(), sess.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, NewMessageViews(h.md, msgs, sess.Settings.ShowCode))
}

// ClearHistory deletes the caller's conversation.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := session.WithChannel(r.Context(), session.ChannelHTTP)
	n, err := h.mgr.ClearHistory(ctx, session.IDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"cleared": n})
}
