package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Manager maps combatant handles to their delivery bridge. It is safe for
// concurrent use: the tick goroutine delivers while connection goroutines
// attach and detach.
type Manager struct {
	mu       sync.RWMutex
	sessions map[entity.Handle]*BridgeEntity
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[entity.Handle]*BridgeEntity)}
}

// Attach binds b to h.
//
// Precondition: b must not be nil.
// Postcondition: returns an error if h already has a session.
func (m *Manager) Attach(h entity.Handle, b *BridgeEntity) error {
	if b == nil {
		panic("session.Manager.Attach: bridge must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[h]; exists {
		return fmt.Errorf("entity %s already has a session", h)
	}
	m.sessions[h] = b
	return nil
}

// Detach closes and removes h's session. Detaching an unknown handle is a
// no-op.
func (m *Manager) Detach(h entity.Handle) {
	m.mu.Lock()
	b, ok := m.sessions[h]
	delete(m.sessions, h)
	m.mu.Unlock()
	if ok {
		_ = b.Close()
	}
}

// Get returns the session for h.
func (m *Manager) Get(h entity.Handle) (*BridgeEntity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.sessions[h]
	return b, ok
}

// Has reports whether h has a session.
func (m *Manager) Has(h entity.Handle) bool {
	_, ok := m.Get(h)
	return ok
}

// Deliver sends text to h. Entities without a session are skipped silently;
// a closed or full session returns the push error.
func (m *Manager) Deliver(h entity.Handle, text string) error {
	b, ok := m.Get(h)
	if !ok {
		return nil
	}
	return b.Push(text)
}

// Count returns the number of attached sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
