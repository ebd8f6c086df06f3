package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/gogotex/gogoblog/internal/models"
)

type memObject struct {
	data        []byte
	contentType string
	owner       string
}

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
	locator PreviewLocator
}

func NewMemoryStorage(locator PreviewLocator) *MemoryStorage {
	return &MemoryStorage{objects: map[string]memObject{}, locator: locator}
}

func (m *MemoryStorage) CreateFile(ctx context.Context, f models.File, r io.Reader) (*models.File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o := memObject{data: b, contentType: f.ContentType, owner: f.Owner}
	m.objects[f.ID] = o
	return o.file(f.ID), nil
}

func (o memObject) file(id string) *models.File {
	return &models.File{ID: id, Owner: o.owner, ContentType: o.contentType, Size: int64(len(o.data))}
}

func (m *MemoryStorage) StatFile(ctx context.Context, id string) (*models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.file(id), nil
}

func (m *MemoryStorage) DeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

func (m *MemoryStorage) OpenFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), o.file(id), nil
}

func (m *MemoryStorage) ListFiles(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStorage) FilePreviewURL(id string, o PreviewOptions) string {
	return m.locator.URL(id, o)
}
