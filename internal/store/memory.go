package store

import (
	"context"
	"sync"
	"time"

	"github.com/fuomag9/colive-web/internal/models"
)

// Memory keeps records in process. Suitable for a single instance.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]models.FlowSession
	tickets  map[string]models.HandoffTicket
	now      func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]models.FlowSession),
		tickets:  make(map[string]models.HandoffTicket),
		now:      time.Now,
	}
}

func (m *Memory) SaveSession(_ context.Context, session *models.FlowSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*models.FlowSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if session.IsExpired(m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return &session, nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) SaveTicket(_ context.Context, ticket *models.HandoffTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *Memory) ConsumeTicket(_ context.Context, id string) (*models.HandoffTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.tickets, id)
	if ticket.IsExpired(m.now()) {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, session := range m.sessions {
		if session.IsExpired(now) {
			delete(m.sessions, id)
			purged++
		}
	}
	for id, ticket := range m.tickets {
		if ticket.IsExpired(now) {
			delete(m.tickets, id)
			purged++
		}
	}
	return purged, nil
}

func (m *Memory) Close() error { return nil }
