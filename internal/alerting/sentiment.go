package alerting

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediapulse/media-pulse-bot/internal/models"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

// DetectSentimentAlerts compares the two most recent sentiment reports per
// tracked platform and raises a shift alert when the positive or negative
// count moved by at least the platform's threshold.
func (s *Service) DetectSentimentAlerts(ctx context.Context) (int, error) {
	logrus.Info("Checking for sentiment alerts...")
	alertCount := 0

	for _, platform := range s.config.Platforms {
		raised, err := s.checkPlatformSentiment(ctx, platform)
		if err != nil {
			logrus.Errorf("Error checking sentiment shifts for %s: %v", platform, err)
			continue
		}
		if raised {
			alertCount++
		}
	}

	logrus.Infof("Created %d sentiment shift alerts", alertCount)
	return alertCount, nil
}

func (s *Service) checkPlatformSentiment(ctx context.Context, platform string) (bool, error) {
	reports, err := s.storage.ListSentimentReports(ctx, storage.SentimentReportFilter{
		Platform: platform,
		Limit:    2,
	})
	if err != nil {
		return false, err
	}

	if len(reports) < 2 {
		logrus.Debugf("Not enough historical data for %s to detect sentiment shifts", platform)
		return false, nil
	}

	// Reports arrive newest first
	current := reports[0]
	previous := reports[1]

	positiveChange := CalculateChange(previous.Positive, current.Positive)
	negativeChange := CalculateChange(previous.Negative, current.Negative)

	threshold := s.platformThreshold(ctx, platform)

	changes := make(map[string]int)
	if abs(positiveChange) >= threshold {
		changes["positive"] = positiveChange
	}
	if abs(negativeChange) >= threshold {
		changes["negative"] = negativeChange
	}

	if len(changes) == 0 {
		return false, nil
	}

	logrus.Infof("Significant sentiment shift detected for %s: %v", platform, changes)
	s.recordPlatformShift(platform)

	shift := &models.SentimentShift{
		Platform:   platform,
		Previous:   &previous,
		Current:    &current,
		Changes:    changes,
		Priority:   priorityFromScore(current.Negative),
		DetectedAt: time.Now(),
	}

	s.notifySentimentShift(ctx, shift)

	s.dispatcher.Enqueue("sentiment_update", shift)

	return true, nil
}

// platformThreshold resolves the alert threshold for a platform. A keyword
// record named after the platform can override the configured default.
func (s *Service) platformThreshold(ctx context.Context, platform string) int {
	keywords, err := s.storage.ListKeywords(ctx, false)
	if err != nil {
		logrus.Errorf("Error listing keywords for threshold lookup: %v", err)
		return s.config.DefaultAlertThreshold
	}

	for _, keyword := range keywords {
		if strings.EqualFold(keyword.Word, platform) && keyword.AlertThreshold != nil {
			return *keyword.AlertThreshold
		}
	}

	return s.config.DefaultAlertThreshold
}

func (s *Service) notifySentimentShift(ctx context.Context, shift *models.SentimentShift) {
	recipients, err := s.notificationRecipients(ctx)
	if err != nil {
		logrus.Errorf("Error listing notification recipients: %v", err)
		return
	}

	for _, user := range recipients {
		if err := s.notifier.SendSentimentAlertEmail(shift, user.Email, s.userLanguage(user)); err != nil {
			logrus.Errorf("Error sending sentiment alert notification to %s: %v", user.Email, err)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
