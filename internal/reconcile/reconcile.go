// Package reconcile removes stored images that no post references. Best-effort
// deletes on the request path can leave such files behind.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/gogotex/gogoblog/pkg/metrics"
)

// Store is the part of the content service a pass needs.
type Store interface {
	ListFiles(ctx context.Context) ([]string, error)
	ReferencedFiles(ctx context.Context) (map[string]bool, error)
	DeleteFile(ctx context.Context, id string) bool
}

// Report summarises one pass.
type Report struct {
	Scanned  int      `json:"scanned"`
	Orphaned []string `json:"orphaned"`
	Deleted  int      `json:"deleted"`
	Failed   int      `json:"failed"`
}

// Run lists every stored file and deletes those no post references. With
// dryRun set nothing is deleted. Files are listed before references are read
// so an image attached during the pass is not removed.
func Run(ctx context.Context, s Store, dryRun bool) (*Report, error) {
	ids, err := s.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	refs, err := s.ReferencedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("referenced files: %w", err)
	}

	rep := &Report{Scanned: len(ids), Orphaned: []string{}}
	for _, id := range ids {
		if refs[id] {
			continue
		}
		rep.Orphaned = append(rep.Orphaned, id)
	}
	sort.Strings(rep.Orphaned)

	if dryRun {
		logger.Infof("reconcile (dry run): %d of %d files unreferenced", len(rep.Orphaned), rep.Scanned)
		return rep, nil
	}
	for _, id := range rep.Orphaned {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if s.DeleteFile(ctx, id) {
			rep.Deleted++
			metrics.ReconciledFiles.Inc()
			continue
		}
		rep.Failed++
	}
	logger.Infof("reconcile: scanned=%d deleted=%d failed=%d", rep.Scanned, rep.Deleted, rep.Failed)
	return rep, nil
}
