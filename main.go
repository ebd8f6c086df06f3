package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/handlers"
	"github.com/gogotex/gogoblog/internal/app"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/tokens"
	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/gogotex/gogoblog/pkg/metrics"
	"github.com/gogotex/gogoblog/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is read again from config below; init early so config warnings are visible
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	if chk := cfg.Check(); !chk.OK() {
		// keep serving: pages show the configuration banner and /ready reports not_ready
		logger.Warnf("configuration incomplete: %s", chk.Message)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		logger.Fatalf("failed to initialise services: %v", err)
	}
	defer a.Close(context.Background())

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	r.Use(middleware.SessionLoader(middleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		Resolver:   a.Auth,
		ParseToken: func(raw string) (*tokens.Claims, error) { return tokens.Parse(cfg, raw) },
		Blacklist:  a.Blacklist,
	}))

	// per-user when authenticated, otherwise per-IP; keyed after the session loader
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(a.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	handlers.RegisterHealth(r, startTime, func() (map[string]bool, bool) {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.Ready(rctx)
	})
	handlers.Register(r, handlers.Deps{
		Cfg:       cfg,
		Auth:      a.Auth,
		Content:   a.Content,
		Guard:     a.Guard,
		Blacklist: a.Blacklist,
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("Config summary: mongo=%v redis=%v minio=%v jwt_secret_set=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.JWT.Secret != "")
	logger.Infof("Starting blog service on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatalf("server failed: %v", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	c.ExposeHeaders = []string{"Content-Length"}
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
