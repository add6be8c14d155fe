package cleanup

import (
	"context"
	"fmt"
	"time"

	"demodesk/cache"
	"demodesk/core/review"
	"demodesk/logger"
	"demodesk/model"
	"demodesk/storage"
)

// maxErrorDetails caps how many per-file failure messages a report carries.
const maxErrorDetails = 20

// pageSize is the folder listing page size for the sweep.
const pageSize = 100

// Report summarizes one sweep over the rejected folder.
type Report struct {
	Scanned      int      `json:"scanned"`
	Deleted      int      `json:"deleted"`
	Failed       int      `json:"failed"`
	ErrorDetails []string `json:"error_details,omitempty"`
}

// Sweeper deletes rejected demos older than the retention window.
type Sweeper struct {
	store     storage.FileStore
	demoCache *cache.DemoCache
	retention time.Duration
	now       func() time.Time
}

// NewSweeper wires a sweeper with the given retention window.
func NewSweeper(store storage.FileStore, demoCache *cache.DemoCache, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		demoCache: demoCache,
		retention: retention,
		now:       time.Now,
	}
}

// Sweep pages through the rejected folder and deletes every file whose
// stored modification time is older than the retention window. Individual
// delete failures are counted and reported but never abort the sweep. The
// demo cache is invalidated once if anything was deleted.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	folder := review.StatusFolder(model.StatusRejected)
	cutoff := s.now().Add(-s.retention)
	report := &Report{}

	cursor := ""
	for {
		page, err := s.store.ListPage(ctx, folder, cursor, pageSize)
		if err != nil {
			return report, fmt.Errorf("failed to list %s: %w", folder, err)
		}

		for _, f := range page.Files {
			report.Scanned++
			if !f.Modified.Before(cutoff) {
				continue
			}
			if err := s.store.Delete(ctx, f.Path); err != nil {
				report.Failed++
				if len(report.ErrorDetails) < maxErrorDetails {
					report.ErrorDetails = append(report.ErrorDetails, fmt.Sprintf("%s: %v", f.Path, err))
				}
				logger.Warn("[Cleanup] delete failed",
					logger.String("path", f.Path), logger.ErrorField(err))
				continue
			}
			report.Deleted++
		}

		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	if report.Deleted > 0 {
		if err := s.demoCache.Invalidate(ctx); err != nil {
			logger.Warn("[Cleanup] failed to invalidate demo cache", logger.ErrorField(err))
		}
	}

	logger.Info("[Cleanup] sweep finished",
		logger.Int("scanned", report.Scanned),
		logger.Int("deleted", report.Deleted),
		logger.Int("failed", report.Failed))
	return report, nil
}
