package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pruner deletes prompts older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService handles data retention and cleanup
type CleanupService struct {
	Store         Pruner
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a new cleanup service. A non-positive retentionDays disables it.
func NewCleanupService(store Pruner, retentionDays int) *CleanupService {
	return &CleanupService{Store: store, RetentionDays: retentionDays, now: time.Now}
}

// Enabled reports whether a retention period is configured.
func (s *CleanupService) Enabled() bool { return s.RetentionDays > 0 }

// CleanupOldData removes prompts older than the retention period
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)
	deleted, err := s.Store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=cleanup.run: %w", err)
	}
	slog.Info("data cleanup completed",
		slog.Int64("deleted_prompts", deleted),
		slog.Time("cutoff", cutoff),
	)
	return deleted, nil
}

// RunPeriodic starts a periodic cleanup job and blocks until ctx is done.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if !s.Enabled() {
		slog.Info("data retention disabled")
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour // daily by default
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
