package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"transitadmin/internal/models"
)

// MemoryAdapter keeps everything in process. It backs development runs and
// the service tests.
type MemoryAdapter struct {
	mu          sync.Mutex
	collections map[Name][]byte
	sessions    map[string]models.Session
	now         func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		collections: make(map[Name][]byte),
		sessions:    make(map[string]models.Session),
		now:         time.Now,
	}
}

func (m *MemoryAdapter) Read(_ context.Context, name Name) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeRecords(m.collections[name])
}

func (m *MemoryAdapter) Write(_ context.Context, name Name, records []json.RawMessage) error {
	raw, err := encodeRecords(records)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = raw
	return nil
}

func (m *MemoryAdapter) Update(_ context.Context, name Name, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := decodeRecords(m.collections[name])
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	raw, err := encodeRecords(next)
	if err != nil {
		return err
	}
	m.collections[name] = raw
	return nil
}

func (m *MemoryAdapter) ReadSession(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(m.now()) {
		delete(m.sessions, id)
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemoryAdapter) WriteSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = session
	return nil
}

func (m *MemoryAdapter) ClearSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryAdapter) Ping(context.Context) error {
	return nil
}
