package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
)

// MemoryRepo is an in-memory post repository.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]models.Post
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]models.Post), now: time.Now}
}

func (m *MemoryRepo) Create(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.Slug]; ok {
		return ErrDuplicate
	}
	now := m.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.store[p.Slug] = *p
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, slug string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepo) List(ctx context.Context, q Query) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(q.Search)
	out := make([]*models.Post, 0, len(m.store))
	for _, p := range m.store {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.Author != "" && p.Author != q.Author {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if q.FeaturedImage != "" && p.FeaturedImage != q.FeaturedImage {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Slug < out[j].Slug
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, slug, author string, f models.PostFields) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[slug]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Author != author {
		return nil, ErrNotOwner
	}
	p.Title = f.Title
	p.Content = f.Content
	p.FeaturedImage = f.FeaturedImage
	p.Status = f.Status
	p.UpdatedAt = m.now().UTC()
	m.store[slug] = p
	return &p, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, slug, author string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[slug]
	if !ok {
		return ErrNotFound
	}
	if p.Author != author {
		return ErrNotOwner
	}
	delete(m.store, slug)
	return nil
}
