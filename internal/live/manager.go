// Package live serves quiz games over WebSocket.
package live

import (
	"log/slog"
	"sync"

	"github.com/ashureev/quizlabs/internal/game"
	"github.com/coder/websocket"
)

// ConnManager tracks the active socket of each player tab.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a tab.
func (m *ConnManager) GetActive(key game.Key) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[key.UserID]; ok {
		return tabs[key.SessionID]
	}
	return nil
}

// Register stores conn for key, closing any socket it replaces.
func (m *ConnManager) Register(key game.Key, conn *websocket.Conn) {
	m.mu.Lock()
	if _, exists := m.active[key.UserID]; !exists {
		m.active[key.UserID] = make(map[string]*websocket.Conn)
	}
	replaced := m.active[key.UserID][key.SessionID]
	m.active[key.UserID][key.SessionID] = conn
	m.mu.Unlock()

	if replaced != nil && replaced != conn {
		_ = replaced.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}
	slog.Info("Live connection registered", "user_id", key.UserID, "session_id", key.SessionID)
}

// Unregister removes conn for key if it is still the active one.
func (m *ConnManager) Unregister(key game.Key, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[key.UserID]; ok {
		if current, exists := tabs[key.SessionID]; exists && current == conn {
			m.remove(key)
			slog.Info("Live connection unregistered", "user_id", key.UserID, "session_id", key.SessionID)
		}
	}
}

// CloseKey terminates the socket of a single tab.
func (m *ConnManager) CloseKey(key game.Key, reason string) {
	m.mu.Lock()
	conn, ok := m.active[key.UserID][key.SessionID]
	if ok {
		m.remove(key)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusGoingAway, reason)
	slog.Info("Live connection closed", "user_id", key.UserID, "session_id", key.SessionID, "reason", reason)
}

// CloseUser terminates all sockets of a player.
func (m *ConnManager) CloseUser(userID string) {
	m.mu.Lock()
	tabs := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for sid, conn := range tabs {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Live connection closed", "user_id", userID, "session_id", sid)
	}
}

// remove deletes the entry for key. m.mu must be held.
func (m *ConnManager) remove(key game.Key) {
	tabs := m.active[key.UserID]
	delete(tabs, key.SessionID)
	if len(tabs) == 0 {
		delete(m.active, key.UserID)
	}
}

// Len returns the number of open sockets.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tabs := range m.active {
		n += len(tabs)
	}
	return n
}
