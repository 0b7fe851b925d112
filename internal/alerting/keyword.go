package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediapulse/media-pulse-bot/internal/models"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

// DetectKeywordAlerts scans posts from the lookback window against the active
// keyword set and creates an alert for every previously unseen
// (keyword, post) match. Re-running over the same data creates nothing new.
func (s *Service) DetectKeywordAlerts(ctx context.Context) (int, error) {
	logrus.Info("Checking for keyword alerts...")
	alertCount := 0

	keywords, err := s.storage.ListKeywords(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list keywords: %w", err)
	}

	if len(keywords) == 0 {
		logrus.Info("No active keywords to monitor")
		return 0, nil
	}

	dateFrom := time.Now().Add(-time.Duration(s.config.LookbackWindowMinutes) * time.Minute)
	recentPosts, err := s.storage.ListSocialPosts(ctx, storage.SocialPostFilter{
		DateFrom: &dateFrom,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list recent posts: %w", err)
	}

	if len(recentPosts) == 0 {
		logrus.Info("No recent posts to check")
		return 0, nil
	}

	logrus.Infof("Checking %d recent posts for %d monitored keywords", len(recentPosts), len(keywords))

	for i := range recentPosts {
		created, err := s.checkPost(ctx, &recentPosts[i], keywords)
		if err != nil {
			// One bad post never aborts the sweep
			logrus.Errorf("Error checking post %d for keyword alerts: %v", recentPosts[i].ID, err)
			continue
		}
		alertCount += created
	}

	logrus.Infof("Created %d new keyword alerts", alertCount)
	return alertCount, nil
}

// checkPost matches one post against all active keywords and returns the
// number of alerts created for it.
func (s *Service) checkPost(ctx context.Context, post *models.SocialPost, keywords []models.Keyword) (int, error) {
	postContent := strings.ToLower(post.Content)
	created := 0
	var matched []string

	for i := range keywords {
		keyword := &keywords[i]
		if !strings.Contains(postContent, strings.ToLower(keyword.Word)) {
			continue
		}

		// Idempotency: one alert per (keyword, post) pair, ever
		existing, err := s.storage.ListKeywordAlerts(ctx, storage.KeywordAlertFilter{
			KeywordID:    keyword.ID,
			SocialPostID: post.ID,
		})
		if err != nil {
			logrus.Errorf("Error checking existing alerts for keyword %q: %v", keyword.Word, err)
			continue
		}
		if len(existing) > 0 {
			continue
		}

		alert := models.KeywordAlert{
			KeywordID:    keyword.ID,
			SocialPostID: post.ID,
			AlertDate:    time.Now(),
			IsRead:       false,
			AlertSent:    false,
			Priority:     keywordPriority(post.Sentiment),
		}

		stored, err := s.storage.CreateKeywordAlert(ctx, alert)
		if err != nil {
			logrus.Errorf("Error creating keyword alert for %q: %v", keyword.Word, err)
			continue
		}

		created++
		matched = append(matched, keyword.Word)

		s.notifyKeywordAlert(ctx, keyword, post, &stored)

		s.dispatcher.Enqueue("keyword_alert", &models.KeywordMatch{
			Keyword: keyword.Word,
			Post:    post,
			Alert:   &stored,
		})
	}

	if len(matched) > 0 {
		logrus.Infof("Post ID %d matched %d keywords: %s", post.ID, len(matched), strings.Join(matched, ", "))
	}

	return created, nil
}

// notifyKeywordAlert emails every admin and editor about a new alert, then
// marks the alert (and any other still-unsent alerts for the keyword) as
// sent. Delivery is best-effort: a failed recipient is logged and skipped.
func (s *Service) notifyKeywordAlert(ctx context.Context, keyword *models.Keyword, post *models.SocialPost, alert *models.KeywordAlert) {
	recipients, err := s.notificationRecipients(ctx)
	if err != nil {
		logrus.Errorf("Error listing notification recipients: %v", err)
		return
	}

	if len(recipients) == 0 {
		return
	}

	for _, user := range recipients {
		if err := s.notifier.SendKeywordAlertEmail(keyword.Word, post.Content, user.Email, s.userLanguage(user)); err != nil {
			logrus.Errorf("Error sending keyword alert notification to %s: %v", user.Email, err)
		}
	}

	s.markKeywordAlertsSent(ctx, keyword.ID, alert.ID)
}

func (s *Service) markKeywordAlertsSent(ctx context.Context, keywordID, alertID int) {
	sent := true

	if _, err := s.storage.UpdateKeywordAlert(ctx, alertID, storage.KeywordAlertPatch{AlertSent: &sent}); err != nil {
		logrus.Errorf("Error marking alert %d as sent: %v", alertID, err)
	}

	// Sweep up any older unsent alerts for the same keyword; the email just
	// dispatched covers them.
	unsent := false
	pending, err := s.storage.ListKeywordAlerts(ctx, storage.KeywordAlertFilter{
		KeywordID: keywordID,
		AlertSent: &unsent,
	})
	if err != nil {
		logrus.Errorf("Error listing unsent alerts for keyword %d: %v", keywordID, err)
		return
	}

	for _, p := range pending {
		if p.ID == alertID {
			continue
		}
		if _, err := s.storage.UpdateKeywordAlert(ctx, p.ID, storage.KeywordAlertPatch{AlertSent: &sent}); err != nil {
			logrus.Errorf("Error marking alert %d as sent: %v", p.ID, err)
		}
	}
}
