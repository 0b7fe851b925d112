package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/models"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

// Checker runs one alert-detection pass.
type Checker interface {
	CheckForAlerts(ctx context.Context) models.RunResult
}

// Service handles scheduling of alert detection runs
type Service struct {
	config  *config.Config
	checker Checker
	archive storage.Archive

	mu    sync.Mutex
	cron  *cron.Cron
	runMu sync.Mutex
}

// NewService creates a new scheduler service. archive may be nil to disable
// run snapshots.
func NewService(cfg *config.Config, checker Checker, archive storage.Archive) *Service {
	return &Service{
		config:  cfg,
		checker: checker,
		archive: archive,
	}
}

// Start begins scheduled alert checks. Calling Start while already running
// replaces the existing schedule rather than stacking a second one.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
		logrus.Warn("Scheduler was already running, replacing schedule")
	}

	c := cron.New(cron.WithSeconds())

	spec := fmt.Sprintf("@every %dm", s.config.CheckIntervalMinutes)
	_, err := c.AddFunc(spec, func() {
		logrus.Info("Starting scheduled alert check")
		result := s.RunOnce(context.Background())
		logrus.Infof("Scheduled alert check completed: %d keyword alerts, %d sentiment alerts",
			result.KeywordAlerts, result.SentimentAlerts)
	})
	if err != nil {
		return err
	}

	c.Start()
	s.cron = c
	logrus.Infof("Scheduler started, checking for alerts every %d minutes", s.config.CheckIntervalMinutes)
	return nil
}

// Stop stops the scheduler. An in-flight run completes naturally; only the
// pending timer is cancelled.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
		logrus.Info("Scheduler stopped")
	}
}

// RunOnce performs a single alert-detection pass. Overlapping invocations
// (scheduled or manual) are serialized so a run fully settles before the next
// begins, which keeps the detectors' dedup checks race-free.
func (s *Service) RunOnce(ctx context.Context) models.RunResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	result := s.checker.CheckForAlerts(ctx)

	if s.archive != nil && (result.KeywordAlerts > 0 || result.SentimentAlerts > 0) {
		s.archiveRun(result)
	}

	return result
}

func (s *Service) archiveRun(result models.RunResult) {
	snapshot := struct {
		RunAt time.Time `json:"run_at"`
		models.RunResult
	}{time.Now(), result}

	data, err := json.Marshal(snapshot)
	if err != nil {
		logrus.Errorf("Failed to marshal run snapshot: %v", err)
		return
	}

	filename := fmt.Sprintf("alert-run-%s.json", time.Now().Format("2006-01-02-15-04-05"))
	if err := s.archive.Store(filename, data); err != nil {
		logrus.Errorf("Failed to archive run snapshot: %v", err)
	}
}
