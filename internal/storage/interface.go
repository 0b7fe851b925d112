package storage

import (
	"context"
	"time"

	"github.com/mediapulse/media-pulse-bot/internal/models"
)

// SocialPostFilter narrows ListSocialPosts results.
type SocialPostFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Platform string
}

// KeywordAlertFilter narrows ListKeywordAlerts results. Zero values mean
// "any"; AlertSent filters only when set.
type KeywordAlertFilter struct {
	KeywordID    int
	SocialPostID int
	AlertSent    *bool
}

// KeywordAlertPatch carries the mutable KeywordAlert fields for updates.
type KeywordAlertPatch struct {
	IsRead    *bool
	AlertSent *bool
	Priority  *string
}

// SentimentReportFilter narrows ListSentimentReports results. Reports are
// returned newest first; Limit caps the result when positive.
type SentimentReportFilter struct {
	Platform string
	Limit    int
}

// Store defines the contract the alert engine depends on. The real
// persistence layer lives outside this service; anything satisfying this
// interface can back the detectors.
type Store interface {
	ListKeywords(ctx context.Context, activeOnly bool) ([]models.Keyword, error)
	ListSocialPosts(ctx context.Context, filter SocialPostFilter) ([]models.SocialPost, error)
	ListKeywordAlerts(ctx context.Context, filter KeywordAlertFilter) ([]models.KeywordAlert, error)
	CreateKeywordAlert(ctx context.Context, alert models.KeywordAlert) (models.KeywordAlert, error)
	UpdateKeywordAlert(ctx context.Context, id int, patch KeywordAlertPatch) (models.KeywordAlert, error)
	ListSentimentReports(ctx context.Context, filter SentimentReportFilter) ([]models.SentimentReport, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}
