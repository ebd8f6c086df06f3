// Command reconcile deletes stored images that no post references.
//
//	reconcile [-dry-run] [-timeout 5m]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/gogotex/gogoblog/internal/app"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/reconcile"
	"github.com/gogotex/gogoblog/pkg/logger"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "only report unreferenced files")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	if chk := cfg.Check(); !chk.OK() {
		logger.Fatalf("refusing to reconcile: %s", chk.Message)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		logger.Fatalf("failed to initialise services: %v", err)
	}
	defer a.Close(context.Background())
	if a.Backends["posts"] != "mongo" || a.Backends["files"] != "minio" {
		// in-memory stores are empty in a fresh process
		logger.Fatalf("reconcile needs MongoDB and MinIO, got posts=%s files=%s", a.Backends["posts"], a.Backends["files"])
	}

	rep, err := reconcile.Run(ctx, a.Content, *dryRun)
	if err != nil {
		logger.Fatalf("reconcile: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
}
