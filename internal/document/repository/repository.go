// Package repository stores blog posts. The Mongo implementation is used in
// production; MemoryRepo backs tests and unconfigured deployments.
package repository

import (
	"context"
	"errors"

	"github.com/gogotex/gogoblog/internal/models"
)

var (
	ErrNotFound = errors.New("post not found")
	// ErrDuplicate is returned when the slug is already used.
	ErrDuplicate = errors.New("slug already exists")
	// ErrNotOwner is returned by Update/Delete when the post exists but
	// belongs to another author.
	ErrNotOwner = errors.New("post owned by another author")
)

// Query selects posts for List. Zero fields do not filter.
type Query struct {
	Status string
	Author string
	// Search is a case-insensitive substring of the title.
	Search string
	// FeaturedImage matches posts using that file id.
	FeaturedImage string
	Limit         int
}

// Repository is the document store surface. List orders newest first by CreatedAt.
type Repository interface {
	Create(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, q Query) ([]*models.Post, error)
	Update(ctx context.Context, slug, author string, f models.PostFields) (*models.Post, error)
	Delete(ctx context.Context, slug, author string) error
}
