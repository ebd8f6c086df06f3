// Package app builds the service graph from configuration. Each backend is
// used when configured and reachable, with an in-memory store otherwise.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gogotex/gogoblog/internal/auth"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/content"
	"github.com/gogotex/gogoblog/internal/database"
	"github.com/gogotex/gogoblog/internal/document/repository"
	"github.com/gogotex/gogoblog/internal/identity"
	"github.com/gogotex/gogoblog/internal/postform"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/storage"
	"github.com/gogotex/gogoblog/internal/users"
	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultPostsCollection is used when no collection identifier is configured.
const DefaultPostsCollection = "posts"

// App holds the wired services and the clients behind them.
type App struct {
	Cfg       *config.Config
	Auth      *auth.Service
	Content   *content.Service
	Guard     postform.Guard
	Blacklist *sessions.Blacklist

	Mongo *mongo.Client
	Redis *redis.Client
	// Backends names the store chosen per concern, e.g. "posts": "mongo".
	Backends map[string]string
}

// Options tune Build. The zero value is fine.
type Options struct {
	Retry database.Retry
	// Connect overrides how MongoDB is reached; tests use it.
	Connect func(ctx context.Context) (*mongo.Client, error)
}

// Build connects the configured backends and wires the services.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Cfg: cfg, Backends: map[string]string{}}

	a.Redis = connectRedis(ctx, cfg)
	a.Mongo = a.connectMongo(ctx, opts)

	accounts, sessRepo, err := a.identityStores(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	docs, err := a.postStore(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	files, err := a.fileStore()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	idp := identity.New(accounts, sessions.NewService(sessRepo), cfg.Session.TTL)
	a.Auth = auth.NewService(idp)
	a.Content = content.NewService(docs, files, cfg.Upload.MaxBytes)
	a.Blacklist = sessions.NewBlacklist(a.Redis)
	if a.Redis != nil {
		a.Guard = postform.NewRedisGuard(a.Redis)
		a.Backends["locks"] = "redis"
	} else {
		a.Guard = postform.NewMemoryGuard()
		a.Backends["locks"] = "memory"
	}
	logger.Infof("backends: %v", a.Backends)
	return a, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	c := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		_ = c.Close()
		return nil
	}
	logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
	return c
}

func (a *App) connectMongo(ctx context.Context, opts Options) *mongo.Client {
	cfg := a.Cfg
	connect := opts.Connect
	if connect == nil {
		if cfg.MongoDB.URI == "" {
			return nil
		}
		connect = func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		}
	}
	r := opts.Retry
	if r.Attempts == 0 {
		r = database.DefaultRetry
	}
	client, err := database.ConnectWithRetry(ctx, r, connect)
	if err != nil {
		logger.Warnf("could not connect to MongoDB: %v", err)
		return nil
	}
	return client
}

func (a *App) database() *mongo.Database {
	name := a.Cfg.Backend.DatabaseID
	if name == "" {
		name = "blog"
	}
	return a.Mongo.Database(name)
}

func (a *App) identityStores(ctx context.Context) (users.Repository, sessions.Repository, error) {
	var accounts users.Repository = users.NewMemoryRepository()
	a.Backends["users"] = "memory"
	if a.Mongo != nil {
		repo, err := users.NewMongoRepository(ctx, a.database().Collection("users"))
		if err != nil {
			return nil, nil, fmt.Errorf("users store: %w", err)
		}
		accounts = repo
		a.Backends["users"] = "mongo"
	}

	switch {
	case a.Redis != nil:
		a.Backends["sessions"] = "redis"
		return accounts, sessions.NewRedisRepository(a.Redis, "session:"), nil
	case a.Mongo != nil:
		a.Backends["sessions"] = "mongo"
		return accounts, sessions.NewMongoRepository(ctx, a.database().Collection("sessions")), nil
	default:
		a.Backends["sessions"] = "memory"
		return accounts, sessions.NewMemoryRepository(), nil
	}
}

func (a *App) postStore(ctx context.Context) (content.DocumentStore, error) {
	if a.Mongo == nil {
		a.Backends["posts"] = "memory"
		return repository.NewMemoryRepo(), nil
	}
	name := a.Cfg.Backend.CollectionID
	if name == "" {
		name = DefaultPostsCollection
	}
	col := a.database().Collection(name)
	n, err := repository.MigrateAuthorField(ctx, col)
	if err != nil {
		return nil, fmt.Errorf("migrate author field: %w", err)
	}
	if n > 0 {
		logger.Infof("migrated author field on %d posts", n)
	}
	a.Backends["posts"] = "mongo"
	return repository.NewMongoRepo(ctx, col), nil
}

func (a *App) fileStore() (content.ObjectStore, error) {
	cfg := a.Cfg
	locator := storage.PreviewLocator{
		Endpoint: cfg.Backend.Endpoint,
		Project:  cfg.Backend.ProjectID,
		Bucket:   storage.BucketOrDefault(cfg.Backend.BucketID),
	}
	mcfg := storage.MinIOConfigFrom(cfg)
	if !mcfg.Usable() {
		a.Backends["files"] = "memory"
		return storage.NewMemoryStorage(locator), nil
	}
	s, err := storage.NewMinIOStorage(mcfg, locator)
	if err != nil {
		return nil, fmt.Errorf("files store: %w", err)
	}
	a.Backends["files"] = "minio"
	return s, nil
}

// Ready reports per-dependency health for the readiness probe. The service
// is ready when its configuration is complete and every configured backend
// answers.
func (a *App) Ready(ctx context.Context) (map[string]bool, bool) {
	deps := map[string]bool{"config": a.Cfg.Check().OK()}
	if a.Cfg.Redis.Host != "" {
		deps["redis"] = a.Redis != nil && a.Redis.Ping(ctx).Err() == nil
	}
	if a.Cfg.MongoDB.URI != "" {
		deps["mongo"] = a.Mongo != nil && a.Mongo.Ping(ctx, nil) == nil
	}
	ready := true
	for _, ok := range deps {
		ready = ready && ok
	}
	return deps, ready
}

// Close releases the backend clients.
func (a *App) Close(ctx context.Context) {
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Warnf("mongo disconnect: %v", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
