// Package ws serves the live chat channel over WebSocket.
package ws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Registry tracks open connections per session. A session may hold several
// connections, one per browser tab.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Count returns how many connections sessionID holds.
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active[sessionID])
}

// Register adds conn for a session.
func (r *Registry) Register(sessionID, connID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[sessionID]; !exists {
		r.active[sessionID] = make(map[string]*websocket.Conn)
	}
	r.active[sessionID][connID] = conn
	slog.Debug("Chat connection registered", "session_id", sessionID, "conn_id", connID)
}

// Unregister removes conn if it is still the one registered under connID.
func (r *Registry) Unregister(sessionID, connID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.active[sessionID]
	if !ok {
		return
	}
	if current, exists := conns[connID]; exists && current == conn {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.active, sessionID)
		}
		slog.Debug("Chat connection unregistered", "session_id", sessionID, "conn_id", connID)
	}
}

// CloseSession closes every connection of a session.
func (r *Registry) CloseSession(sessionID string) {
	r.mu.Lock()
	conns := r.active[sessionID]
	delete(r.active, sessionID)
	r.mu.Unlock()

	for connID, conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "logged out")
		slog.Info("Chat connection closed", "session_id", sessionID, "conn_id", connID)
	}
}
