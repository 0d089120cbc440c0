// Package session owns the per-visitor conversation state: identity, settings and history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/cognichat/internal/analytics"
	"github.com/ashureev/cognichat/internal/auth"
	"github.com/ashureev/cognichat/internal/chatlog"
	"github.com/ashureev/cognichat/internal/dataset"
	"github.com/ashureev/cognichat/internal/domain"
	"github.com/ashureev/cognichat/internal/store"
)

var (
	// ErrUnauthenticated is returned when an operation needs a logged-in session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is returned by Login on a username/password mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrEmptyQuery is returned by Ask for blank input.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidSettings is returned by UpdateSettings for out-of-range values.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Channel names recorded in conversation logs.
const (
	ChannelHTTP      = "chat_http"
	ChannelWebSocket = "chat_ws"
	ChannelCLI       = "cli"
)

type channelKey struct{}

// WithChannel tags ctx with the transport a request arrived on.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func channelFrom(ctx context.Context) string {
	if v, ok := ctx.Value(channelKey{}).(string); ok {
		return v
	}
	return ChannelHTTP
}

// DatasetInfo describes the loaded dataset.
type DatasetInfo struct {
	Rows    int              `json:"rows"`
	Columns []dataset.Column `json:"columns"`
}

// Options configures a Manager.
type Options struct {
	Repo            store.Repository
	Gate            *auth.Gate
	Dataset         *dataset.Dataset
	ChatLog         chatlog.Logger
	Logger          *slog.Logger
	DefaultSettings domain.Settings
}

// Manager coordinates sessions. Operations on one session are serialized;
// different sessions proceed independently.
type Manager struct {
	repo     store.Repository
	gate     *auth.Gate
	ds       *dataset.Dataset
	chatLog  chatlog.Logger
	logger   *slog.Logger
	defaults domain.Settings
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	hooksMu     sync.RWMutex
	logoutHooks []func(sessionID string)
}

// NewManager validates opts and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Repo == nil {
		return nil, errors.New("session manager requires a repository")
	}
	if opts.Gate == nil {
		return nil, errors.New("session manager requires an auth gate")
	}
	if opts.ChatLog == nil {
		opts.ChatLog = chatlog.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultSettings == (domain.Settings{}) {
		opts.DefaultSettings = domain.DefaultSettings()
	}
	if err := opts.DefaultSettings.Validate(); err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	return &Manager{
		repo:     opts.Repo,
		gate:     opts.Gate,
		ds:       opts.Dataset,
		chatLog:  opts.ChatLog,
		logger:   opts.Logger,
		defaults: opts.DefaultSettings,
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}, nil
}

// OnLogout registers fn to run after a session logs out.
func (m *Manager) OnLogout(fn func(sessionID string)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.logoutHooks = append(m.logoutHooks, fn)
}

// sessionLock serializes one session. It lives in Manager.locks only while
// some caller holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (m *Manager) lock(id string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

// Start creates a new unauthenticated session with default settings.
func (m *Manager) Start(ctx context.Context) (*domain.Session, error) {
	now := m.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Settings:  m.defaults,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Debug("Session started", "session_id", sess.ID)
	return sess, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Ensure returns the session with the given ID, or starts a new one when id is
// not a valid session ID or is unknown.
func (m *Manager) Ensure(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err == nil {
		sess, err := m.repo.GetSession(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	return m.Start(ctx)
}

// Login authenticates the session as username. Signing in as a different user
// discards the previous user's history.
func (m *Manager) Login(ctx context.Context, id, username, password string) (*domain.Session, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.gate.Verify(username, password) {
		m.logger.Info("Login rejected", "session_id", id, "username", username)
		return nil, ErrInvalidCredentials
	}

	if sess.Authenticated && sess.Username != username {
		removed, err := m.repo.DeleteMessages(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("clear previous user's history: %w", err)
		}
		m.logger.Info("Session switched user",
			"session_id", id, "from", sess.Username, "to", username, "messages_removed", removed)
	}

	sess.SignIn(username, m.now())
	if err := m.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.logger.Info("Login succeeded", "session_id", id, "username", username)
	return sess, nil
}

// Logout clears the session's identity and history, then runs the logout hooks.
func (m *Manager) Logout(ctx context.Context, id string) error {
	username, err := m.logout(ctx, id)
	if err != nil {
		return err
	}

	m.chatLog.Log(chatlog.Event{
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
		Username:  username,
		SessionID: id,
		Channel:   channelFrom(ctx),
		EventType: chatlog.EventLogout,
	})

	m.hooksMu.RLock()
	hooks := append([]func(string){}, m.logoutHooks...)
	m.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

func (m *Manager) logout(ctx context.Context, id string) (string, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	username := sess.Username

	if _, err := m.repo.DeleteMessages(ctx, id); err != nil {
		return "", fmt.Errorf("clear history: %w", err)
	}
	sess.SignOut(m.now())
	if err := m.repo.UpdateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	m.logger.Info("Logout", "session_id", id, "username", username)
	return username, nil
}

// Ask answers query against the dataset and records the question and answer
// together. The returned message is the assistant's reply.
func (m *Manager) Ask(ctx context.Context, id, query string) (*domain.Message, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated {
		return nil, ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	question := domain.NewUserMessage(id, query, m.now())

	start := time.Now()
	resp := analytics.Dispatch(query, m.ds, sess.Settings.MaxRows)
	elapsed := time.Since(start)

	// The question is only kept together with its answer.
	answer := domain.NewAssistantMessage(id, resp, m.now())
	if err := m.repo.AppendMessages(ctx, question, answer); err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}

	rule := resp.Rule
	switch {
	case analytics.IsError(resp):
		rule = "error"
		m.logger.Warn("Query analysis failed", "session_id", id, "error", resp.Content)
	case rule == "":
		rule = "help"
	}
	m.logger.Info("Query answered",
		"session_id", id,
		"username", sess.Username,
		"rule", rule,
		"query_length", len(query),
		"duration_ms", elapsed.Milliseconds(),
	)

	channel := channelFrom(ctx)
	m.chatLog.Log(chatlog.Event{
		Timestamp:  question.CreatedAt.UTC().Format(time.RFC3339Nano),
		Username:   sess.Username,
		SessionID:  id,
		Channel:    channel,
		Direction:  chatlog.DirectionInbound,
		EventType:  chatlog.EventUserMessage,
		ContentRaw: query,
		Meta:       map[string]any{"seq": question.Seq},
	})
	m.chatLog.Log(chatlog.Event{
		Timestamp:  answer.CreatedAt.UTC().Format(time.RFC3339Nano),
		Username:   sess.Username,
		SessionID:  id,
		Channel:    channel,
		Direction:  chatlog.DirectionOutbound,
		EventType:  chatlog.EventAssistantMessage,
		ContentRaw: answer.Content,
		Meta: map[string]any{
			"seq":       answer.Seq,
			"rule":      rule,
			"has_chart": answer.Chart != nil,
			"has_table": answer.Table != nil,
		},
	})

	return answer, nil
}

// History returns the session's messages in order.
func (m *Manager) History(ctx context.Context, id string) ([]*domain.Message, error) {
	msgs, err := m.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// ClearHistory removes every message of the session and returns how many were removed.
func (m *Manager) ClearHistory(ctx context.Context, id string) (int64, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := m.repo.DeleteMessages(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}

	m.chatLog.Log(chatlog.Event{
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
		Username:  sess.Username,
		SessionID: id,
		Channel:   channelFrom(ctx),
		EventType: chatlog.EventHistoryCleared,
		Meta:      map[string]any{"cleared": n},
	})
	return n, nil
}

// UpdateSettings replaces the session's settings.
func (m *Manager) UpdateSettings(ctx context.Context, id string, settings domain.Settings) (*domain.Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	unlock := m.lock(id)
	defer unlock()

	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Settings = settings
	sess.UpdatedAt = m.now()
	if err := m.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// DatasetInfo describes the shared dataset.
func (m *Manager) DatasetInfo() DatasetInfo {
	return DatasetInfo{Rows: m.ds.Len(), Columns: m.ds.Columns()}
}
