package api

import (
	"html"
	"log/slog"
	"time"

	"github.com/ashureev/cognichat/internal/analytics"
	"github.com/ashureev/cognichat/internal/domain"
	"github.com/ashureev/cognichat/internal/render"
)

// MessageView is the wire form of a history message.
type MessageView struct {
	Seq         int64            `json:"seq"`
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	ContentHTML string           `json:"content_html"`
	Chart       *analytics.Chart `json:"chart,omitempty"`
	Table       *analytics.Table `json:"dataframe,omitempty"`
	Code        string           `json:"code,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SessionView is the wire form of a session.
type SessionView struct {
	SessionID     string          `json:"session_id"`
	Username      string          `json:"username,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Settings      domain.Settings `json:"settings"`
	Messages      []MessageView   `json:"messages,omitempty"`
}

// NewMessageView renders msg for the client. The trace is only included when showCode is set.
func NewMessageView(md *render.Markdown, msg *domain.Message, showCode bool) MessageView {
	body, err := md.HTML(msg.Content)
	if err != nil {
		slog.Warn("failed to render message content", "seq", msg.Seq, "error", err)
		body = "<p>" + html.EscapeString(msg.Content) + "</p>"
	}

	v := MessageView{
		Seq:         msg.Seq,
		Role:        msg.Role,
		Content:     msg.Content,
		ContentHTML: body,
		Chart:       msg.Chart,
		Table:       msg.Table,
		CreatedAt:   msg.CreatedAt,
	}
	if showCode {
		v.Code = msg.Code
	}
	return v
}

// NewMessageViews renders a history.
func NewMessageViews(md *render.Markdown, msgs []*domain.Message, showCode bool) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, NewMessageView(md, m, showCode))
	}
	return views
}

// NewSessionView renders a session without its history.
func NewSessionView(sess *domain.Session) SessionView {
	return SessionView{
		SessionID:     sess.ID,
		Username:      sess.Username,
		Authenticated: sess.Authenticated,
		Settings:      sess.Settings,
	}
}
