package notifications

import "github.com/mediapulse/media-pulse-bot/internal/models"

// Notifier defines the contract for alert notification delivery. Both calls
// are best-effort: callers log failures and move on.
type Notifier interface {
	SendKeywordAlertEmail(keyword, postContent, recipient, lang string) error
	SendSentimentAlertEmail(shift *models.SentimentShift, recipient, lang string) error
}
