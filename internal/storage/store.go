// Package storage holds the object store backends: MinIO for deployments and
// an in-memory store for tests and unconfigured setups.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/gogotex/gogoblog/internal/models"
)

// ErrNotFound is returned when no object has the requested id.
var ErrNotFound = errors.New("file not found")

// Store is implemented by every object store backend.
type Store interface {
	// CreateFile stores r under f.ID, recording f.Owner and f.ContentType.
	CreateFile(ctx context.Context, f models.File, r io.Reader) (*models.File, error)
	StatFile(ctx context.Context, id string) (*models.File, error)
	DeleteFile(ctx context.Context, id string) error
	OpenFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error)
	ListFiles(ctx context.Context) ([]string, error)
	FilePreviewURL(id string, o PreviewOptions) string
}
