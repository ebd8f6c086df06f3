package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/document/repository"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/storage"
	"github.com/gogotex/gogoblog/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	alice = &models.User{ID: "u-alice", Email: "alice@example.com"}
	bob   = &models.User{ID: "u-bob", Email: "bob@example.com"}
)

func newTestService() (*Service, *repository.MemoryRepo, *storage.MemoryStorage) {
	docs := repository.NewMemoryRepo()
	files := storage.NewMemoryStorage(storage.PreviewLocator{Endpoint: "http://localhost:5001", Project: "p", Bucket: "b"})
	return NewService(docs, files, 1024), docs, files
}

// failing stores for error paths
type brokenDocs struct{ repository.Repository }

func (brokenDocs) Get(context.Context, string) (*models.Post, error) {
	return nil, errors.New("connection reset")
}
func (brokenDocs) List(context.Context, repository.Query) ([]*models.Post, error) {
	return nil, errors.New("connection reset")
}

type stickyFiles struct{ *storage.MemoryStorage }

func (stickyFiles) DeleteFile(context.Context, string) error { return errors.New("permission denied") }

type leakyDocs struct{ *repository.MemoryRepo }

// List ignores the status filter, as a misbehaving store might.
func (l leakyDocs) List(ctx context.Context, q repository.Query) ([]*models.Post, error) {
	q.Status = ""
	return l.MemoryRepo.List(ctx, q)
}

func TestCreatePost_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", Content: "<p>c</p>", Status: "active"})
	require.NoError(t, err)
	require.Equal(t, "t", p.Slug)
	require.Equal(t, alice.ID, p.Author)

	got, err := svc.GetPost(ctx, p.Slug)
	require.NoError(t, err)
	require.Equal(t, "T", got.Title)
	require.Equal(t, "<p>c</p>", got.Content)
	require.Equal(t, "active", got.Status)
}

func TestCreatePost_Unauthenticated(t *testing.T) {
	svc, docs, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, nil, PostInput{Title: "T", Slug: "t", Status: "active"})
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	all, err := docs.List(ctx, repository.Query{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreatePost_SlugAndValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "Hello, World!", Slug: "  My Custom Slug "})
	require.NoError(t, err)
	require.Equal(t, "my-custom-slug", p.Slug)
	require.Equal(t, models.StatusActive, p.Status)

	p, err = svc.CreatePost(ctx, alice, PostInput{Title: "Hello, World!"})
	require.NoError(t, err)
	require.Equal(t, "hello-world", p.Slug)

	_, err = svc.CreatePost(ctx, bob, PostInput{Title: "Hello World"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	p, err = svc.CreatePost(ctx, alice, PostInput{Title: "!!!"})
	require.NoError(t, err)
	require.Len(t, p.Slug, 36)

	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "   "})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "x", Status: "draft"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCreatePost_SanitizesContent(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.CreatePost(context.Background(), alice, PostInput{
		Title:   "x",
		Content: `<p onclick="steal()">hi</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	require.Equal(t, "<p>hi</p>", p.Content)
}

func TestUpdatePost_AuthorImmutable(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", Status: "active"})
	require.NoError(t, err)
	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)

	inputs := []PostInput{
		{Title: "New"},
		{Title: "New", Slug: "other-slug", Status: "inactive"},
		{Title: "Again", Content: "<b>x</b>", FeaturedImage: img.ID},
	}
	for _, in := range inputs {
		upd, err := svc.UpdatePost(ctx, alice, p.Slug, in)
		require.NoError(t, err)
		require.Equal(t, alice.ID, upd.Author)
		require.Equal(t, p.Slug, upd.Slug)
	}
	got, err := svc.GetPost(ctx, p.Slug)
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.Author)
	require.Equal(t, "Again", got.Title)
	require.Equal(t, "inactive", got.Status)
}

func TestUpdateDelete_OtherUserDenied(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "Mine", Content: "<p>a</p>"})
	require.NoError(t, err)
	before, _ := svc.GetPost(ctx, p.Slug)

	_, err = svc.UpdatePost(ctx, bob, p.Slug, PostInput{Title: "Hijacked"})
	require.ErrorIs(t, err, apperr.ErrPermission)
	err = svc.DeletePost(ctx, bob, p.Slug)
	require.ErrorIs(t, err, apperr.ErrPermission)

	after, err := svc.GetPost(ctx, p.Slug)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateDelete_NotFoundAndUnauthenticated(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpdatePost(ctx, alice, "missing", PostInput{Title: "x"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, svc.DeletePost(ctx, alice, "missing"), apperr.ErrNotFound)

	_, err = svc.UpdatePost(ctx, nil, "missing", PostInput{Title: "x"})
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	require.ErrorIs(t, svc.DeletePost(ctx, nil, "missing"), apperr.ErrNotAuthenticated)
}

func TestUpdatePost_ReplacedImageDeleted(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()
	old, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("abc"))
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", FeaturedImage: old.ID})
	require.NoError(t, err)

	// keeping the image leaves it alone
	_, err = svc.UpdatePost(ctx, alice, p.Slug, PostInput{Title: "T2"})
	require.NoError(t, err)
	_, _, err = files.OpenFile(ctx, old.ID)
	require.NoError(t, err)

	fresh, err := svc.UploadFile(ctx, alice, "b.png", "image/png", 3, strings.NewReader("def"))
	require.NoError(t, err)
	_, err = svc.UpdatePost(ctx, alice, p.Slug, PostInput{Title: "T3", FeaturedImage: fresh.ID})
	require.NoError(t, err)
	_, _, err = files.OpenFile(ctx, old.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeletePost_RemovesImage(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()
	f, err := svc.UploadFile(ctx, alice, "a.gif", "image/gif", 3, strings.NewReader("gif"))
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", FeaturedImage: f.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, alice, p.Slug))
	_, err = svc.GetPost(ctx, p.Slug)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = files.OpenFile(ctx, f.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeletePost_FileDeleteFailureIsBestEffort(t *testing.T) {
	docs := repository.NewMemoryRepo()
	files := stickyFiles{storage.NewMemoryStorage(storage.PreviewLocator{})}
	svc := NewService(docs, files, 0)
	ctx := context.Background()

	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", FeaturedImage: img.ID})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.OrphanedFiles)
	require.NoError(t, svc.DeletePost(ctx, alice, p.Slug))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanedFiles))

	_, err = svc.GetPost(ctx, p.Slug)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.False(t, svc.DeleteFile(ctx, img.ID))
}

func TestListPosts_ActiveOnlyNewestFirst(t *testing.T) {
	docs := repository.NewMemoryRepo()
	svc := NewService(leakyDocs{docs}, storage.NewMemoryStorage(storage.PreviewLocator{}), 0)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		status := models.StatusActive
		if i%3 == 0 {
			status = models.StatusInactive
		}
		require.NoError(t, docs.Create(ctx, &models.Post{
			Slug:      fmt.Sprintf("p-%d", i),
			Title:     fmt.Sprintf("Post %d", i),
			Status:    status,
			Author:    []string{alice.ID, bob.ID}[i%2],
			CreatedAt: base.Add(time.Duration((i*7)%10) * time.Minute),
		}))
	}

	posts := svc.ListPosts(ctx, ListFilter{})
	require.NotEmpty(t, posts)
	for i, p := range posts {
		require.Equal(t, models.StatusActive, p.Status)
		if i > 0 {
			require.False(t, posts[i-1].CreatedAt.Before(p.CreatedAt))
		}
	}

	for _, p := range svc.ListPostsByAuthor(ctx, alice.ID) {
		require.Equal(t, alice.ID, p.Author)
		require.Equal(t, models.StatusActive, p.Status)
	}
	require.Empty(t, svc.ListPostsByAuthor(ctx, ""))
}

func TestListPosts_Search(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, title := range []string{"Learning Go", "Gardening", "Rust notes"} {
		_, err := svc.CreatePost(ctx, alice, PostInput{Title: title})
		require.NoError(t, err)
	}
	got := svc.ListPosts(ctx, ListFilter{Search: "GO"})
	require.Len(t, got, 1)
	require.Equal(t, "Learning Go", got[0].Title)
}

func TestReadPaths_SwallowErrors(t *testing.T) {
	svc := NewService(brokenDocs{}, storage.NewMemoryStorage(storage.PreviewLocator{}), 0)
	ctx := context.Background()

	_, err := svc.GetPost(ctx, "nonexistent-slug")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NotErrorIs(t, err, apperr.ErrTransport)

	require.Empty(t, svc.ListPosts(ctx, ListFilter{}))
	require.NotNil(t, svc.ListPosts(ctx, ListFilter{}))

	svc2, _, _ := newTestService()
	_, err = svc2.GetPost(ctx, "nonexistent-slug")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUploadFile_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UploadFile(ctx, alice, "a.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.ErrorIs(t, err, apperr.ErrUpload)

	big := bytes.Repeat([]byte("x"), 2048)
	_, err = svc.UploadFile(ctx, alice, "big.png", "image/png", int64(len(big)), bytes.NewReader(big))
	require.ErrorIs(t, err, apperr.ErrUpload)

	f, err := svc.UploadFile(ctx, alice, "ok.jpg", "image/jpeg", 4, strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "ok.jpg", f.Name)

	rc, meta, err := svc.OpenFile(ctx, f.ID)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "jpeg", string(b))
	require.Equal(t, "image/jpeg", meta.ContentType)

	_, _, err = svc.OpenFile(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPreviewURL(t *testing.T) {
	svc, _, _ := newTestService()
	require.Equal(t, "", svc.PreviewURL("", 0, 0))
	require.Equal(t,
		"http://localhost:5001/storage/buckets/b/files/f1/preview?gravity=center&height=1000&project=p&quality=100&width=2000",
		svc.PreviewURL("f1", 0, 0))
	require.Contains(t, svc.PreviewURL("f1", 400, 300), "width=400")
}

func TestReferencedFiles(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "a", FeaturedImage: img.ID, Status: "inactive"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "b"})
	require.NoError(t, err)

	refs, err := svc.ReferencedFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{img.ID: true}, refs)
}

func TestFeaturedImage_MustBeOwnAndUnused(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()
	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "Alice", FeaturedImage: img.ID})
	require.NoError(t, err)

	// bob cannot feature alice's image, on a new post or an update
	_, err = svc.CreatePost(ctx, bob, PostInput{Title: "Bob", FeaturedImage: img.ID})
	require.ErrorIs(t, err, apperr.ErrFileOwner)
	require.ErrorIs(t, err, apperr.ErrPermission)
	bobs, err := svc.CreatePost(ctx, bob, PostInput{Title: "Bob"})
	require.NoError(t, err)
	_, err = svc.UpdatePost(ctx, bob, bobs.Slug, PostInput{Title: "Bob", FeaturedImage: img.ID})
	require.ErrorIs(t, err, apperr.ErrFileOwner)

	// alice cannot put the same image on a second post either
	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "Alice two", FeaturedImage: img.ID})
	require.ErrorIs(t, err, apperr.ErrFileOwner)

	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "Ghost", FeaturedImage: "no-such-file"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, svc.DeletePost(ctx, bob, bobs.Slug))
	_, err = files.StatFile(ctx, img.ID)
	require.NoError(t, err)
}

func TestDropFile_KeepsImageFeaturedElsewhere(t *testing.T) {
	svc, docs, files := newTestService()
	ctx := context.Background()
	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	// two posts sharing one image, as older data may have
	for _, slug := range []string{"one", "two"} {
		require.NoError(t, docs.Create(ctx, &models.Post{Slug: slug, Title: slug, Status: models.StatusActive, Author: alice.ID, FeaturedImage: img.ID}))
	}

	require.NoError(t, svc.DeletePost(ctx, alice, "one"))
	_, err = files.StatFile(ctx, img.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, alice, "two"))
	_, err = files.StatFile(ctx, img.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveFile(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()
	img, err := svc.UploadFile(ctx, alice, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, alice.ID, img.Owner)

	require.ErrorIs(t, svc.RemoveFile(ctx, nil, img.ID), apperr.ErrNotAuthenticated)
	require.ErrorIs(t, svc.RemoveFile(ctx, bob, img.ID), apperr.ErrFileOwner)
	require.ErrorIs(t, svc.RemoveFile(ctx, alice, "missing"), apperr.ErrNotFound)

	p, err := svc.CreatePost(ctx, alice, PostInput{Title: "T", FeaturedImage: img.ID})
	require.NoError(t, err)
	require.ErrorIs(t, svc.RemoveFile(ctx, alice, img.ID), apperr.ErrConflict)

	// detach by deleting the post: the image goes with it
	require.NoError(t, svc.DeletePost(ctx, alice, p.Slug))
	other, err := svc.UploadFile(ctx, alice, "b.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	require.NoError(t, svc.RemoveFile(ctx, alice, other.ID))
	_, err = files.StatFile(ctx, other.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.UploadFile(ctx, nil, "c.png", "image/png", 3, strings.NewReader("png"))
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}
