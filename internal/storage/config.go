package storage

import "github.com/gogotex/gogoblog/internal/config"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// DefaultBucket names the bucket used when no bucket identifier is configured.
const DefaultBucket = "blog-images"

// BucketOrDefault returns id, or DefaultBucket when id is empty.
func BucketOrDefault(id string) string {
	if id == "" {
		return DefaultBucket
	}
	return id
}

// MinIOConfigFrom builds the MinIO settings from the application config. The
// bucket is the deployment's bucket identifier.
func MinIOConfigFrom(cfg *config.Config) *MinIOConfig {
	return &MinIOConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		UseSSL:    cfg.MinIO.UseSSL,
		Bucket:    cfg.Backend.BucketID,
	}
}

// Usable reports whether a MinIO backend can be built from c.
func (c *MinIOConfig) Usable() bool {
	return c != nil && c.Endpoint != "" && c.Bucket != ""
}
