// Package transport provides WebSocket-based plugin connection handling.
package transport

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Manager tracks active WebSocket connections by connection id.
type Manager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a connection id.
func (m *Manager) GetActive(connID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[connID]
}

// Register adds a new WebSocket connection.
func (m *Manager) Register(connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.active[connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[connID] = conn
	slog.Info("Plugin connection registered", "conn_id", connID)
}

// Unregister removes a WebSocket connection.
func (m *Manager) Unregister(connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[connID]; exists && current == conn {
		delete(m.active, connID)
		slog.Info("Plugin connection unregistered", "conn_id", connID)
	}
}

// Count returns the number of active connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseAll forcefully terminates every active connection.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, conn := range m.active {
		_ = conn.Close(websocket.StatusGoingAway, "daemon shutting down")
		slog.Info("Plugin connection closed", "conn_id", id)
	}
	m.active = make(map[string]*websocket.Conn)
}
