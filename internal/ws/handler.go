package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashureev/cognichat/internal/api"
	"github.com/ashureev/cognichat/internal/render"
	"github.com/ashureev/cognichat/internal/session"
)

const writeTimeout = 10 * time.Second

// Frame types.
const (
	TypeQuery   = "query"
	TypeClear   = "clear"
	TypePing    = "ping"
	TypeMessage = "message"
	TypeCleared = "cleared"
	TypePong    = "pong"
	TypeError   = "error"
)

// ClientFrame is a frame sent by the browser.
type ClientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServerFrame is a frame sent to the browser.
type ServerFrame struct {
	Type    string           `json:"type"`
	Message *api.MessageView `json:"message,omitempty"`
	Count   *int64           `json:"count,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Handler upgrades authenticated requests to a chat connection.
type Handler struct {
	mgr            *session.Manager
	reg            *Registry
	md             *render.Markdown
	limiter        *api.RateLimiter
	originPatterns []string
}

// NewHandler creates a chat WebSocket handler. originPatterns lists the hosts
// allowed to connect cross-origin; "*" accepts any.
func NewHandler(mgr *session.Manager, reg *Registry, limiter *api.RateLimiter, originPatterns []string) *Handler {
	return &Handler{
		mgr:            mgr,
		reg:            reg,
		md:             render.NewMarkdown(),
		limiter:        limiter,
		originPatterns: originPatterns,
	}
}

// ServeHTTP implements http.Handler. It must run after session.Middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil || !sess.Authenticated {
		api.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID := sess.ID

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "session ended")
	}()

	connID := uuid.NewString()
	h.reg.Register(sessionID, connID, conn)
	defer h.reg.Unregister(sessionID, connID, conn)

	ctx := session.WithChannel(r.Context(), session.ChannelWebSocket)
	slog.Info("Chat connection opened", "session_id", sessionID, "conn_id", connID, "connections", h.reg.Count(sessionID))
	h.readLoop(ctx, conn, sessionID)
	slog.Info("Chat connection ended", "session_id", sessionID, "conn_id", connID)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if err := h.write(ctx, conn, ServerFrame{Type: TypeError, Error: "malformed frame"}); err != nil {
				return
			}
			continue
		}

		reply := h.handle(ctx, sessionID, frame)
		if err := h.write(ctx, conn, reply); err != nil {
			return
		}
	}
}

func (h *Handler) handle(ctx context.Context, sessionID string, frame ClientFrame) ServerFrame {
	switch frame.Type {
	case TypePing:
		return ServerFrame{Type: TypePong}

	case TypeQuery:
		if !h.limiter.Allow(sessionID) {
			return ServerFrame{Type: TypeError, Error: "too many questions, slow down"}
		}
		answer, err := h.mgr.Ask(ctx, sessionID, frame.Content)
		if err != nil {
			return errorFrame(sessionID, err)
		}
		sess, err := h.mgr.Get(ctx, sessionID)
		if err != nil {
			return errorFrame(sessionID, err)
		}
		view := api.NewMessageView(h.md, answer, sess.Settings.ShowCode)
		return ServerFrame{Type: TypeMessage, Message: &view}

	case TypeClear:
		n, err := h.mgr.ClearHistory(ctx, sessionID)
		if err != nil {
			return errorFrame(sessionID, err)
		}
		return ServerFrame{Type: TypeCleared, Count: &n}

	default:
		return ServerFrame{Type: TypeError, Error: "unknown frame type " + frame.Type}
	}
}

func errorFrame(sessionID string, err error) ServerFrame {
	if api.StatusFor(err) == http.StatusInternalServerError {
		slog.Error("Chat frame failed", "session_id", sessionID, "error", err)
		return ServerFrame{Type: TypeError, Error: "internal error"}
	}
	return ServerFrame{Type: TypeError, Error: err.Error()}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, frame ServerFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return err
	}
	return nil
}

// OriginPatterns converts allowed origins such as "https://app.example.com" to the
// host patterns websocket.Accept expects.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
