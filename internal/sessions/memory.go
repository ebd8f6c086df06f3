package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
)

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]models.Session{}}
}

func (m *MemoryRepository) Create(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = *s
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.store[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.Expired(time.Now().UTC()) {
		_ = m.Delete(ctx, id)
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *MemoryRepository) DeleteByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.store {
		if s.UserID == userID {
			delete(m.store, id)
		}
	}
	return nil
}
