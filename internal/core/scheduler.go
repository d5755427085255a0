package core

// scheduler.go provides background job scheduling for maintenance tasks.
//
// Currently implements audit log retention: entries older than the retention
// window are purged on a fixed interval. The scheduler is long-running and
// stops with its context. A failed purge is logged and retried on the next
// tick; it never takes the server down.

import (
	"context"
	"log/slog"
	"time"
)

// AuditPurgeConfig holds configuration for the audit purge scheduler.
// Zero values fall back to the defaults noted per field.
type AuditPurgeConfig struct {
	RetentionDays int           // Days to keep audit entries (default: 180)
	Interval      time.Duration // How often to run (default: 24h)
}

func (c AuditPurgeConfig) withDefaults() AuditPurgeConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// StartAuditPurgeScheduler purges old audit entries immediately, then every
// Interval, until ctx is cancelled. Run it in its own goroutine.
func (s *Service) StartAuditPurgeScheduler(ctx context.Context, cfg AuditPurgeConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit purge scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.Interval,
	)

	s.runAuditPurge(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit purge scheduler stopped")
			return
		case <-ticker.C:
			s.runAuditPurge(ctx, cfg)
		}
	}
}

// PurgeAuditLog deletes entries older than retentionDays and returns the count.
func (s *Service) PurgeAuditLog(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	return s.store.PurgeAuditEntries(ctx, cutoff)
}

// runAuditPurge performs one purge cycle.
func (s *Service) runAuditPurge(ctx context.Context, cfg AuditPurgeConfig) {
	start := time.Now()

	purged, err := s.PurgeAuditLog(ctx, cfg.RetentionDays)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}

	slog.Info("purged old audit entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
