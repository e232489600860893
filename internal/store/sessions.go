package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions maps opaque session tokens to user IDs with a TTL. RedisStore
// implements it for production; MemorySessions serves development and tests.
type Sessions interface {
	CreateSession(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (uuid.UUID, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

type memorySession struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// MemorySessions is an in-process Sessions implementation. Sessions are
// lost on restart.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

// NewMemorySessions creates an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]memorySession)}
}

// CreateSession stores a token -> user mapping until ttl elapses.
func (m *MemorySessions) CreateSession(_ context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = memorySession{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

// GetSession resolves a token, evicting it lazily if expired.
func (m *MemorySessions) GetSession(_ context.Context, token string) (uuid.UUID, bool, error) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return uuid.Nil, false, nil
	}
	if time.Now().After(sess.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return uuid.Nil, false, nil
	}
	return sess.userID, true, nil
}

// DeleteSession removes a token.
func (m *MemorySessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}
