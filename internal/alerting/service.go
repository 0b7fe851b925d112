package alerting

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/models"
	"github.com/mediapulse/media-pulse-bot/internal/notifications"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

// Dispatcher receives update events for buffered realtime delivery. The hub's
// update buffer implements it; detectors never talk to connections directly.
type Dispatcher interface {
	Enqueue(updateType string, payload interface{})
}

// Service runs the keyword and sentiment-shift detectors against the storage
// port and fans resulting alerts out to email recipients and the realtime
// dispatcher.
type Service struct {
	config     *config.Config
	storage    storage.Store
	notifier   notifications.Notifier
	dispatcher Dispatcher
	metrics    *Metrics
	mu         sync.RWMutex
}

// Metrics holds alert detection metrics
type Metrics struct {
	KeywordAlerts   int            `json:"keyword_alerts"`
	SentimentAlerts int            `json:"sentiment_alerts"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	PlatformShifts  map[string]int `json:"platform_shifts"`
	ErrorCount      int            `json:"error_count"`
}

// NewService creates a new alerting service
func NewService(cfg *config.Config, store storage.Store, notifier notifications.Notifier, dispatcher Dispatcher) *Service {
	return &Service{
		config:     cfg,
		storage:    store,
		notifier:   notifier,
		dispatcher: dispatcher,
		metrics: &Metrics{
			PlatformShifts: make(map[string]int),
		},
	}
}

// CheckForAlerts runs both detectors once and returns the combined counts.
// Detector failures are absorbed into zero counts; this call never fails.
func (s *Service) CheckForAlerts(ctx context.Context) models.RunResult {
	start := time.Now()
	errorCount := 0

	keywordAlerts, err := s.DetectKeywordAlerts(ctx)
	if err != nil {
		logrus.Errorf("Keyword alert detection failed: %v", err)
		errorCount++
	}

	sentimentAlerts, err := s.DetectSentimentAlerts(ctx)
	if err != nil {
		logrus.Errorf("Sentiment alert detection failed: %v", err)
		errorCount++
	}

	s.updateMetrics(keywordAlerts, sentimentAlerts, time.Since(start), errorCount)

	return models.RunResult{
		KeywordAlerts:   keywordAlerts,
		SentimentAlerts: sentimentAlerts,
	}
}

// CalculateChange computes the rounded percentage change between two counts.
// Any growth from zero counts as a 100% increase.
func CalculateChange(oldValue, newValue int) int {
	if oldValue == 0 {
		if newValue == 0 {
			return 0
		}
		return 100
	}

	return int(math.Round(float64(newValue-oldValue) / float64(oldValue) * 100))
}

// keywordPriority maps a post's sentiment score to an alert priority. Lower
// sentiment (more negative content) means higher priority. Posts without a
// score get no priority.
func keywordPriority(sentiment *int) string {
	if sentiment == nil {
		return ""
	}

	switch {
	case *sentiment < 30:
		return models.PriorityHigh
	case *sentiment < 60:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// priorityFromScore maps a current sentiment count to a shift-alert priority.
// Note the axis differs from keywordPriority: this grades the aggregate
// negative count of the newest report, not a per-post score.
func priorityFromScore(score int) string {
	switch {
	case score > 70:
		return models.PriorityLow
	case score > 40:
		return models.PriorityMedium
	default:
		return models.PriorityHigh
	}
}

// notificationRecipients returns the users who receive alert notifications
func (s *Service) notificationRecipients(ctx context.Context) ([]models.User, error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var recipients []models.User
	for _, user := range users {
		if user.Role == "admin" || user.Role == "editor" {
			recipients = append(recipients, user)
		}
	}
	return recipients, nil
}

func (s *Service) userLanguage(user models.User) string {
	if user.Language != "" {
		return user.Language
	}
	return s.config.DefaultLanguage
}

func (s *Service) updateMetrics(keywordAlerts, sentimentAlerts int, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.KeywordAlerts = keywordAlerts
	s.metrics.SentimentAlerts = sentimentAlerts
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ErrorCount = errorCount
}

func (s *Service) recordPlatformShift(platform string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.PlatformShifts[platform]++
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
