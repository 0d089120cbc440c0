//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashureev/cognichat/internal/auth"
	"github.com/ashureev/cognichat/internal/dataset"
	"github.com/ashureev/cognichat/internal/session"
	"github.com/ashureev/cognichat/internal/store"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, limiter *RateLimiter) *client {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	gate, err := auth.NewGate(auth.DefaultUsers, bcrypt.MinCost)
	require.NoError(t, err)

	mgr, err := session.NewManager(session.Options{
		Repo:    repo,
		Gate:    gate,
		Dataset: dataset.Sample(dataset.DefaultSeed, 120),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(mgr, repo, limiter, false).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) login() {
	c.t.Helper()
	var view SessionView
	status := c.do(http.MethodPost, "/api/auth/login", loginRequest{Username: "demo", Password: "demo"}, &view)
	require.Equal(c.t, http.StatusOK, status)
	require.True(c.t, view.Authenticated)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"foo": "bar"})

	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnauthorized, StatusFor(session.ErrUnauthenticated))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(fmt.Errorf("login: %w", session.ErrInvalidCredentials)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(session.ErrEmptyQuery))
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("%w: max_rows", session.ErrInvalidSettings)))
	assert.Equal(t, http.StatusNotFound, StatusFor(store.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestChatRequiresLogin(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, nil)

	var me SessionView
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/me", nil, &me))
	assert.False(t, me.Authenticated)
	assert.NotEmpty(t, me.SessionID)

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "summary"}, nil))
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/dataset", nil, nil))

	status := c.do(http.MethodPost, "/api/auth/login", loginRequest{Username: "demo", Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "demo"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestConversationFlow(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, nil)
	c.login()

	var answer MessageView
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "Give me a summary of the data"}, &answer))
	assert.Equal(t, "assistant", answer.Role)
	assert.Equal(t, int64(2), answer.Seq)
	assert.Contains(t, answer.ContentHTML, "<strong>Dataset Overview:</strong>")
	require.NotNil(t, answer.Table)
	assert.Equal(t, 10, answer.Table.Len())
	assert.Empty(t, answer.Code)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "  "}, nil))

	var settings map[string]any
	status := c.do(http.MethodPut, "/api/settings", map[string]any{"show_code": true, "max_rows": 5}, &settings)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, settings["show_code"])

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/settings", map[string]any{"max_rows": 99}, nil))

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "overview"}, &answer))
	assert.Equal(t, 5, answer.Table.Len())
	assert.NotEmpty(t, answer.Code)

	var history []MessageView
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/chat/history", nil, &history))
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Give me a summary of the data", history[0].Content)
	assert.NotEmpty(t, history[1].Code)

	var me SessionView
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/me", nil, &me))
	assert.Equal(t, "demo", me.Username)
	assert.Len(t, me.Messages, 4)

	var info session.DatasetInfo
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/dataset", nil, &info))
	assert.Equal(t, 120, info.Rows)
	assert.Len(t, info.Columns, 7)

	var cleared map[string]int64
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/chat/history", nil, &cleared))
	assert.Equal(t, int64(4), cleared["cleared"])

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/api/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/chat/history", nil, nil))
}

func TestLogoutClearsHistory(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, nil)
	c.login()

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "hello"}, nil))
	require.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/api/auth/logout", nil, nil))

	c.login()
	var history []MessageView
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/chat/history", nil, &history))
	assert.Empty(t, history)
}

func TestChatRateLimit(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, NewRateLimiter(1, 1))
	c.login()

	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "summary"}, nil))
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "summary"}, nil))
}

func TestRateLimitSurvivesLogout(t *testing.T) {
	t.Parallel()
	c := newTestServer(t, NewRateLimiter(1, 1))
	c.login()

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "summary"}, nil))
	require.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/api/auth/logout", nil, nil))
	c.login()
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/api/chat", chatRequest{Message: "summary"}, nil))
}

func TestRateLimiterEvictsOnlyRefilledBuckets(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(60, 1)
	require.True(t, l.Allow("busy"))
	require.Equal(t, 1, l.size())

	assert.Zero(t, l.evict(time.Now()), "a drained bucket still carries state")
	assert.Equal(t, 1, l.size())

	assert.Equal(t, 1, l.evict(time.Now().Add(2*time.Second)))
	assert.Zero(t, l.size())
}

func TestRateLimiterStartEviction(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewRateLimiter(6000, 1)
	require.True(t, l.Allow("a"))
	l.StartEviction(ctx, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return l.size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func TestRateLimiterIsPerKey(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(1, 1)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	var none *RateLimiter
	assert.True(t, none.Allow("x"))
}
