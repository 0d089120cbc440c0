// Package domain contains core domain types for the CogniChat application.
package domain

import (
	"fmt"
	"time"
)

// Bounds of the summary preview size a user can choose.
const (
	MinMaxRows     = 5
	MaxMaxRows     = 50
	DefaultMaxRows = 10
)

// Settings are the per-session display preferences.
type Settings struct {
	ShowCode bool `json:"show_code"`
	MaxRows  int  `json:"max_rows"`
}

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{MaxRows: DefaultMaxRows}
}

// Validate checks that MaxRows is within bounds.
func (s Settings) Validate() error {
	if s.MaxRows < MinMaxRows || s.MaxRows > MaxMaxRows {
		return fmt.Errorf("max_rows must be between %d and %d, got %d", MinMaxRows, MaxMaxRows, s.MaxRows)
	}
	return nil
}

// Session is one visitor's conversation state.
type Session struct {
	ID            string    `json:"session_id"`
	Username      string    `json:"username,omitempty"`
	Authenticated bool      `json:"authenticated"`
	Settings      Settings  `json:"settings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SignIn marks the session as belonging to username.
func (s *Session) SignIn(username string, now time.Time) {
	s.Username = username
	s.Authenticated = true
	s.UpdatedAt = now
}

// SignOut clears the authenticated identity. Settings survive.
func (s *Session) SignOut(now time.Time) {
	s.Username = ""
	s.Authenticated = false
	s.UpdatedAt = now
}
