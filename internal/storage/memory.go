package storage

import (
	"fmt"
	"sync"

	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// MemoryStore holds fallback sessions in memory. Sessions stored here only
// live for the lifetime of the process; the backend remains the source of
// truth once it is reachable again.
type MemoryStore struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
	}
}

func (m *MemoryStore) GetSession(phone string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[phone]
	if !exists {
		return nil, fmt.Errorf("session not found")
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) SaveSession(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.PhoneNumber] = &copied
	return nil
}

func (m *MemoryStore) DeleteSession(phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, phone)
	return nil
}
