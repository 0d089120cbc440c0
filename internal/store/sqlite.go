package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/cognichat/internal/analytics"
	"github.com/ashureev/cognichat/internal/domain"
	"github.com/ashureev/cognichat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets readers proceed while a history append is in flight.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		authenticated INTEGER NOT NULL DEFAULT 0,
		show_code INTEGER NOT NULL DEFAULT 0,
		max_rows INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		chart_json TEXT,
		table_json TEXT,
		code TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
	INSERT INTO sessions (session_id, username, authenticated, show_code, max_rows, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	return shared.RetryOnConflict(ctx, "create session", func() error {
		_, err := s.db.ExecContext(ctx, query,
			session.ID, session.Username, session.Authenticated,
			session.Settings.ShowCode, session.Settings.MaxRows,
			session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT session_id, username, authenticated, show_code, max_rows, created_at, updated_at
		FROM sessions WHERE session_id = ?`

	var session domain.Session
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.Username, &session.Authenticated,
		&session.Settings.ShowCode, &session.Settings.MaxRows,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	return &session, nil
}

// UpdateSession persists identity and settings changes.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	query := `
	UPDATE sessions SET username = ?, authenticated = ?, show_code = ?, max_rows = ?, updated_at = ?
	WHERE session_id = ?`

	return shared.RetryOnConflict(ctx, "update session", func() error {
		result, err := s.db.ExecContext(ctx, query,
			session.Username, session.Authenticated,
			session.Settings.ShowCode, session.Settings.MaxRows,
			session.UpdatedAt.UnixMilli(), session.ID,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

const insertMessageQuery = `
	INSERT INTO messages (session_id, seq, role, content, chart_json, table_json, code, created_at)
	VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?), ?, ?, ?, ?, ?, ?)
	RETURNING seq`

// AppendMessages stores msgs after the session's last message in one transaction
// and sets their Seq. Nothing is written when any message fails to encode or insert.
// Callers serialize appends per session.
func (s *SQLiteStore) AppendMessages(ctx context.Context, msgs ...*domain.Message) error {
	type encoded struct {
		chart any
		table any
	}
	rows := make([]encoded, len(msgs))
	for i, msg := range msgs {
		chartJSON, err := marshalOptional(msg.Chart)
		if err != nil {
			return fmt.Errorf("encode chart: %w", err)
		}
		tableJSON, err := marshalOptional(msg.Table)
		if err != nil {
			return fmt.Errorf("encode table: %w", err)
		}
		rows[i] = encoded{chart: chartJSON, table: tableJSON}
	}

	return shared.RetryOnConflict(ctx, "append messages", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		seqs := make([]int64, len(msgs))
		for i, msg := range msgs {
			err := tx.QueryRowContext(ctx, insertMessageQuery,
				msg.SessionID, msg.SessionID, msg.Role, msg.Content,
				rows[i].chart, rows[i].table, msg.Code, msg.CreatedAt.UnixMilli(),
			).Scan(&seqs[i])
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit messages: %w", err)
		}

		for i, msg := range msgs {
			msg.Seq = seqs[i]
		}
		return nil
	})
}

// ListMessages returns a session's history in sequence order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	query := `
		SELECT seq, role, content, chart_json, table_json, code, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	messages := []*domain.Message{}
	for rows.Next() {
		msg := domain.Message{SessionID: sessionID}
		var chartJSON, tableJSON sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&msg.Seq, &msg.Role, &msg.Content,
			&chartJSON, &tableJSON, &msg.Code, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		if chartJSON.Valid {
			msg.Chart = &analytics.Chart{}
			if err := json.Unmarshal([]byte(chartJSON.String), msg.Chart); err != nil {
				return nil, fmt.Errorf("decode chart of message %d: %w", msg.Seq, err)
			}
		}
		if tableJSON.Valid {
			msg.Table = &analytics.Table{}
			if err := json.Unmarshal([]byte(tableJSON.String), msg.Table); err != nil {
				return nil, fmt.Errorf("decode table of message %d: %w", msg.Seq, err)
			}
		}
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteMessages removes a session's history.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, sessionID string) (int64, error) {
	var removed int64
	err := shared.RetryOnConflict(ctx, "delete messages", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return removed, err
}

// marshalOptional encodes v as JSON, or returns nil for a nil pointer so the column stays NULL.
func marshalOptional[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
