package domain

import (
	"time"

	"github.com/ashureev/cognichat/internal/analytics"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = analytics.RoleAssistant
)

// Message is one entry of a session's conversation history.
// User messages carry only Content; assistant messages may also carry Chart, Table and Code.
type Message struct {
	SessionID string           `json:"-"`
	Seq       int64            `json:"seq"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Chart     *analytics.Chart `json:"chart,omitempty"`
	Table     *analytics.Table `json:"dataframe,omitempty"`
	Code      string           `json:"code,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewUserMessage builds the history entry for a question.
func NewUserMessage(sessionID, content string, now time.Time) *Message {
	return &Message{
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: now,
	}
}

// NewAssistantMessage builds the history entry for a dispatcher response.
func NewAssistantMessage(sessionID string, resp analytics.Response, now time.Time) *Message {
	return &Message{
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   resp.Content,
		Chart:     resp.Chart,
		Table:     resp.Table,
		Code:      resp.Code,
		CreatedAt: now,
	}
}

// IsUser reports whether the message was typed by the user.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}
