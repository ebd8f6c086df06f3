// Package content is the client for posts and their featured images. It
// enforces the authoring rules in front of the document and object stores.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/document/repository"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/storage"
	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/gogotex/gogoblog/pkg/metrics"
	"github.com/google/uuid"
)

// DocumentStore is the post persistence surface.
type DocumentStore interface {
	Create(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, q repository.Query) ([]*models.Post, error)
	Update(ctx context.Context, slug, author string, f models.PostFields) (*models.Post, error)
	Delete(ctx context.Context, slug, author string) error
}

// ObjectStore is the file persistence surface.
type ObjectStore interface {
	CreateFile(ctx context.Context, f models.File, r io.Reader) (*models.File, error)
	StatFile(ctx context.Context, id string) (*models.File, error)
	DeleteFile(ctx context.Context, id string) error
	OpenFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error)
	ListFiles(ctx context.Context) ([]string, error)
	FilePreviewURL(id string, o storage.PreviewOptions) string
}

// DefaultMaxUpload is used when no upload limit is configured.
const DefaultMaxUpload int64 = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
}

// PostInput carries the user-editable fields of a post form. Slug is only
// read on creation.
type PostInput struct {
	Title         string `json:"title" form:"title"`
	Slug          string `json:"slug" form:"slug"`
	Content       string `json:"content" form:"content"`
	FeaturedImage string `json:"featuredImage" form:"featuredImage"`
	Status        string `json:"status" form:"status"`
}

// ListFilter narrows the public listing.
type ListFilter struct {
	Search string
}

// Service implements post and file operations
type Service struct {
	docs      DocumentStore
	files     ObjectStore
	maxUpload int64
}

func NewService(docs DocumentStore, files ObjectStore, maxUpload int64) *Service {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Service{docs: docs, files: files, maxUpload: maxUpload}
}

// MaxUpload is the largest accepted file size in bytes.
func (s *Service) MaxUpload() int64 { return s.maxUpload }

// CreatePost stores a new post authored by u.
func (s *Service) CreatePost(ctx context.Context, u *models.User, in PostInput) (*models.Post, error) {
	if u == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, status)
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		slug = uuid.NewString()
	}
	if in.FeaturedImage != "" {
		if err := s.claimImage(ctx, u, in.FeaturedImage, slug); err != nil {
			return nil, err
		}
	}
	p := &models.Post{
		Slug:          slug,
		Title:         title,
		Content:       Sanitize(in.Content),
		FeaturedImage: in.FeaturedImage,
		Status:        status,
		Author:        u.ID,
	}
	if err := s.docs.Create(ctx, p); err != nil {
		metrics.PostOperations.WithLabelValues("create", "error").Inc()
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: a post with slug %q already exists", apperr.ErrConflict, slug)
		}
		return nil, fmt.Errorf("%w: create post: %w", apperr.ErrTransport, err)
	}
	metrics.PostOperations.WithLabelValues("create", "ok").Inc()
	return p, nil
}

// UpdatePost overwrites title, content, featured image and status of a post
// owned by u. An empty FeaturedImage or Status keeps the stored value.
func (s *Service) UpdatePost(ctx context.Context, u *models.User, slug string, in PostInput) (*models.Post, error) {
	existing, err := s.ownedPost(ctx, u, slug)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	f := models.PostFields{
		Title:         title,
		Content:       Sanitize(in.Content),
		FeaturedImage: in.FeaturedImage,
		Status:        in.Status,
	}
	if f.FeaturedImage == "" {
		f.FeaturedImage = existing.FeaturedImage
	} else if f.FeaturedImage != existing.FeaturedImage {
		if err := s.claimImage(ctx, u, f.FeaturedImage, slug); err != nil {
			return nil, err
		}
	}
	if f.Status == "" {
		f.Status = existing.Status
	}
	if !models.ValidStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, f.Status)
	}
	p, err := s.docs.Update(ctx, slug, u.ID, f)
	if err != nil {
		metrics.PostOperations.WithLabelValues("update", "error").Inc()
		return nil, storeError("update post", err)
	}
	metrics.PostOperations.WithLabelValues("update", "ok").Inc()
	if existing.FeaturedImage != "" && existing.FeaturedImage != p.FeaturedImage {
		s.dropFile(ctx, existing.FeaturedImage)
	}
	return p, nil
}

// DeletePost removes a post owned by u and then, best-effort, its featured image.
func (s *Service) DeletePost(ctx context.Context, u *models.User, slug string) error {
	existing, err := s.ownedPost(ctx, u, slug)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, slug, u.ID); err != nil {
		metrics.PostOperations.WithLabelValues("delete", "error").Inc()
		return storeError("delete post", err)
	}
	metrics.PostOperations.WithLabelValues("delete", "ok").Inc()
	if existing.FeaturedImage != "" {
		s.dropFile(ctx, existing.FeaturedImage)
	}
	return nil
}

func (s *Service) ownedPost(ctx context.Context, u *models.User, slug string) (*models.Post, error) {
	if u == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	existing, err := s.docs.Get(ctx, slug)
	if err != nil {
		return nil, storeError("get post", err)
	}
	if existing.Author != u.ID {
		return nil, apperr.ErrPermission
	}
	return existing, nil
}

// claimImage checks that u may attach file id to the post slug: the file
// exists, u uploaded it and no other post features it.
func (s *Service) claimImage(ctx context.Context, u *models.User, id, slug string) error {
	f, err := s.files.StatFile(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: featured image %q does not exist", apperr.ErrInvalidInput, id)
		}
		return fmt.Errorf("%w: stat file: %w", apperr.ErrTransport, err)
	}
	if f.Owner != u.ID {
		return apperr.ErrFileOwner
	}
	users, err := s.imageUsers(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range users {
		if p.Slug != slug {
			return apperr.ErrFileOwner
		}
	}
	return nil
}

func (s *Service) imageUsers(ctx context.Context, id string) ([]*models.Post, error) {
	posts, err := s.docs.List(ctx, repository.Query{FeaturedImage: id})
	if err != nil {
		return nil, fmt.Errorf("%w: list posts: %w", apperr.ErrTransport, err)
	}
	return posts, nil
}

// dropFile deletes a featured image that a post no longer uses. Files some
// other post still features are kept.
func (s *Service) dropFile(ctx context.Context, id string) {
	users, err := s.imageUsers(ctx, id)
	if err == nil && len(users) > 0 {
		return
	}
	if !s.DeleteFile(ctx, id) {
		metrics.OrphanedFiles.Inc()
	}
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, repository.ErrNotOwner):
		return apperr.ErrPermission
	default:
		return fmt.Errorf("%w: %s: %w", apperr.ErrTransport, op, err)
	}
}

// GetPost returns the post with slug. Every failure is reported as
// apperr.ErrNotFound; store errors are logged.
func (s *Service) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	if slug == "" {
		return nil, apperr.ErrNotFound
	}
	p, err := s.docs.Get(ctx, slug)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warnf("get post %q: %v", slug, err)
		}
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// ListPosts returns active posts newest first. Errors yield an empty list.
func (s *Service) ListPosts(ctx context.Context, f ListFilter) []*models.Post {
	return s.list(ctx, repository.Query{Status: models.StatusActive, Search: strings.TrimSpace(f.Search)})
}

// ListPostsByAuthor is ListPosts restricted to posts by userID.
func (s *Service) ListPostsByAuthor(ctx context.Context, userID string) []*models.Post {
	if userID == "" {
		return []*models.Post{}
	}
	return s.list(ctx, repository.Query{Status: models.StatusActive, Author: userID})
}

func (s *Service) list(ctx context.Context, q repository.Query) []*models.Post {
	posts, err := s.docs.List(ctx, q)
	if err != nil {
		logger.Warnf("list posts: %v", err)
		return []*models.Post{}
	}
	// the store is trusted for ordering but not for visibility
	out := posts[:0]
	for _, p := range posts {
		if p.Status == models.StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// UploadFile stores an image owned by u and returns its descriptor. Size and
// type rejections as well as store failures yield apperr.ErrUpload.
func (s *Service) UploadFile(ctx context.Context, u *models.User, name, contentType string, size int64, r io.Reader) (*models.File, error) {
	if u == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	if !allowedImageTypes[strings.ToLower(contentType)] {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: only PNG, JPEG and GIF images are allowed", apperr.ErrUpload)
	}
	if size <= 0 || size > s.maxUpload {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: file must be between 1 byte and %d bytes", apperr.ErrUpload, s.maxUpload)
	}
	desc := models.File{ID: uuid.NewString(), Owner: u.ID, ContentType: contentType, Size: size}
	f, err := s.files.CreateFile(ctx, desc, io.LimitReader(r, size))
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpload, err)
	}
	f.Name = name
	metrics.Uploads.WithLabelValues("ok").Inc()
	return f, nil
}

// DeleteFile removes a stored file and reports whether it succeeded.
func (s *Service) DeleteFile(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	if err := s.files.DeleteFile(ctx, id); err != nil {
		logger.Warnf("delete file %s: %v", id, err)
		return false
	}
	return true
}

// RemoveFile deletes a file on behalf of u. Only the uploader may delete it,
// and only while no post features it.
func (s *Service) RemoveFile(ctx context.Context, u *models.User, id string) error {
	if u == nil {
		return apperr.ErrNotAuthenticated
	}
	f, err := s.files.StatFile(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("%w: stat file: %w", apperr.ErrTransport, err)
	}
	if f.Owner != u.ID {
		return apperr.ErrFileOwner
	}
	users, err := s.imageUsers(ctx, id)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return fmt.Errorf("%w: file is used by post %q", apperr.ErrConflict, users[0].Slug)
	}
	if err := s.files.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("%w: delete file: %w", apperr.ErrTransport, err)
	}
	return nil
}

// PreviewURL derives the preview URL of a file. Zero dimensions use the
// featured image defaults. An empty id yields "".
func (s *Service) PreviewURL(id string, width, height int) string {
	if id == "" {
		return ""
	}
	o := storage.DefaultPreview
	if width > 0 {
		o.Width = width
	}
	if height > 0 {
		o.Height = height
	}
	return s.files.FilePreviewURL(id, o)
}

// OpenFile returns a reader for a stored file. A missing file is apperr.ErrNotFound.
func (s *Service) OpenFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error) {
	rc, f, err := s.files.OpenFile(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: open file: %w", apperr.ErrTransport, err)
	}
	return rc, f, nil
}

// ReferencedFiles returns the featured image ids of every stored post,
// whatever its status.
func (s *Service) ReferencedFiles(ctx context.Context) (map[string]bool, error) {
	posts, err := s.docs.List(ctx, repository.Query{})
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.FeaturedImage != "" {
			refs[p.FeaturedImage] = true
		}
	}
	return refs, nil
}

// ListFiles returns every stored file id.
func (s *Service) ListFiles(ctx context.Context) ([]string, error) {
	return s.files.ListFiles(ctx)
}
