package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage is a thin wrapper around the minio client.
type MinIOStorage struct {
	client  *minio.Client
	bucket  string
	locator PreviewLocator
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(cfg *MinIOConfig, locator PreviewLocator) (*MinIOStorage, error) {
	if !cfg.Usable() {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, locator: locator}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// ownerMeta is the user metadata key holding the uploader id.
const ownerMeta = "Owner"

// CreateFile uploads the object under f.ID with the owner as user metadata.
func (s *MinIOStorage) CreateFile(ctx context.Context, f models.File, r io.Reader) (*models.File, error) {
	opts := minio.PutObjectOptions{ContentType: f.ContentType}
	if f.Owner != "" {
		opts.UserMetadata = map[string]string{ownerMeta: f.Owner}
	}
	info, err := s.client.PutObject(ctx, s.bucket, f.ID, r, f.Size, opts)
	if err != nil {
		return nil, err
	}
	return &models.File{ID: f.ID, Owner: f.Owner, ContentType: f.ContentType, Size: info.Size}, nil
}

// StatFile returns the descriptor of a stored object.
func (s *MinIOStorage) StatFile(ctx context.Context, id string) (*models.File, error) {
	st, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinIOErr(err)
	}
	return fileFromInfo(id, st), nil
}

func fileFromInfo(id string, st minio.ObjectInfo) *models.File {
	return &models.File{ID: id, Owner: st.UserMetadata[ownerMeta], ContentType: st.ContentType, Size: st.Size}
}

// DeleteFile removes the object. Removing a missing object is not an error.
func (s *MinIOStorage) DeleteFile(ctx context.Context, id string) error {
	return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}

// OpenFile returns a reader for the stored object.
func (s *MinIOStorage) OpenFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, mapMinIOErr(err)
	}
	// perform a stat to ensure object exists
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, mapMinIOErr(err)
	}
	return obj, fileFromInfo(id, st), nil
}

// ListFiles returns every object id in the bucket.
func (s *MinIOStorage) ListFiles(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		ids = append(ids, obj.Key)
	}
	return ids, nil
}

func (s *MinIOStorage) FilePreviewURL(id string, o PreviewOptions) string {
	return s.locator.URL(id, o)
}

func mapMinIOErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
