package services

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/config"
	"github.com/outreachforge/backend/pkg/logger"
)

// Scheduler runs the periodic maintenance jobs: audit log retention,
// system log retention, debug dump cleanup and failed-outreach retry.
type Scheduler struct {
	cron     *cron.Cron
	db       *gorm.DB
	cfg      *config.Config
	outreach *OutreachService
}

func NewScheduler(db *gorm.DB, cfg *config.Config, outreach *OutreachService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		db:       db,
		cfg:      cfg,
		outreach: outreach,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Retention runs nightly, off-peak
	if _, err := s.cron.AddFunc("30 3 * * *", s.runRetention); err != nil {
		return err
	}
	// Retry of failed leads every 15 minutes
	if _, err := s.cron.AddFunc("*/15 * * * *", s.runRetry); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("[Scheduler] Started: nightly retention, retry every 15m")
	return nil
}

// Stop halts the cron loop; running jobs finish first.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	logger.Infof("[Scheduler] Stopped")
}

func (s *Scheduler) runRetention() {
	configs := NewSystemConfigService(s.db)

	callLogDays := configs.GetInt("ai_call_log_retention_days", 90)
	if callLogDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -callLogDays)
		deleted, err := NewAICallLogService(s.db).CleanupBefore(cutoff)
		if err != nil {
			logger.Warnf("[Scheduler] AI call log cleanup failed: %v", err)
		} else if deleted > 0 {
			logger.Infof("[Scheduler] Cleaned up %d AI call logs older than %d days", deleted, callLogDays)
		}
	}

	logCleanup(s.db)
	s.cleanupDebugDumps()
}

// cleanupDebugDumps removes per-call dump files older than 7 days. Dumps
// are a debugging aid, not an audit trail.
func (s *Scheduler) cleanupDebugDumps() {
	dir := s.cfg.AI.Debug.DumpDir
	if dir == "" {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Infof("[Scheduler] Removed %d old debug dumps", removed)
	}
}

func (s *Scheduler) runRetry() {
	configs := NewSystemConfigService(s.db)
	if !configs.GetBool("outreach_retry_enabled", true) {
		return
	}
	maxLeads := configs.GetInt("outreach_retry_max", 3)

	summary, err := s.outreach.RetryFailed(context.Background(), maxLeads)
	if err != nil {
		logger.Warnf("[Scheduler] Outreach retry failed: %v", err)
		return
	}
	if summary != nil {
		logger.Infof("[Scheduler] Retry batch %s: %d processed, %d failed",
			summary.BatchID, summary.Processed, summary.Failed)
	}
}
