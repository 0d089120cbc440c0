// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/cognichat/internal/domain"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting sessions and their conversation history.
type Repository interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID. Returns ErrNotFound if it does not exist.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// UpdateSession persists identity and settings changes.
	UpdateSession(ctx context.Context, session *domain.Session) error

	// AppendMessages stores msgs at the end of their session's history and sets each Seq.
	// Either all messages are appended or none.
	AppendMessages(ctx context.Context, msgs ...*domain.Message) error

	// ListMessages returns a session's history in sequence order.
	ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error)

	// DeleteMessages removes a session's history and returns how many messages were removed.
	DeleteMessages(ctx context.Context, sessionID string) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
