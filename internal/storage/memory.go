package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mediapulse/media-pulse-bot/internal/models"
)

// MemoryStore is an in-process Store implementation. The production
// persistence layer is an external collaborator; this store backs local
// development and the engine's tests, and doubles as the reference for the
// Store contract. It enforces the (KeywordID, SocialPostID) uniqueness that
// the dedup check otherwise only approximates.
type MemoryStore struct {
	mu sync.RWMutex

	keywords []models.Keyword
	posts    []models.SocialPost
	alerts   []models.KeywordAlert
	reports  []models.SentimentReport
	users    []models.User

	nextAlertID int
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextAlertID: 1}
}

// SeedKeywords replaces the keyword set.
func (s *MemoryStore) SeedKeywords(keywords []models.Keyword) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append([]models.Keyword(nil), keywords...)
}

// SeedPosts replaces the social post set.
func (s *MemoryStore) SeedPosts(posts []models.SocialPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]models.SocialPost(nil), posts...)
}

// SeedReports replaces the sentiment report set.
func (s *MemoryStore) SeedReports(reports []models.SentimentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append([]models.SentimentReport(nil), reports...)
}

// SeedUsers replaces the user set.
func (s *MemoryStore) SeedUsers(users []models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append([]models.User(nil), users...)
}

// ListKeywords returns all keywords, or only active ones when activeOnly is set.
func (s *MemoryStore) ListKeywords(ctx context.Context, activeOnly bool) ([]models.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Keyword
	for _, k := range s.keywords {
		if activeOnly && !k.IsActive {
			continue
		}
		result = append(result, k)
	}
	return result, nil
}

// ListSocialPosts returns posts matching the filter, oldest first.
func (s *MemoryStore) ListSocialPosts(ctx context.Context, filter SocialPostFilter) ([]models.SocialPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.SocialPost
	for _, p := range s.posts {
		if filter.DateFrom != nil && p.PostedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && p.PostedAt.After(*filter.DateTo) {
			continue
		}
		if filter.Platform != "" && !strings.EqualFold(p.Platform, filter.Platform) {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PostedAt.Before(result[j].PostedAt)
	})
	return result, nil
}

// ListKeywordAlerts returns alerts matching the filter.
func (s *MemoryStore) ListKeywordAlerts(ctx context.Context, filter KeywordAlertFilter) ([]models.KeywordAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.KeywordAlert
	for _, a := range s.alerts {
		if filter.KeywordID != 0 && a.KeywordID != filter.KeywordID {
			continue
		}
		if filter.SocialPostID != 0 && a.SocialPostID != filter.SocialPostID {
			continue
		}
		if filter.AlertSent != nil && a.AlertSent != *filter.AlertSent {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// CreateKeywordAlert inserts a new alert. The (KeywordID, SocialPostID) pair
// must be unique.
func (s *MemoryStore) CreateKeywordAlert(ctx context.Context, alert models.KeywordAlert) (models.KeywordAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.KeywordID == alert.KeywordID && existing.SocialPostID == alert.SocialPostID {
			return models.KeywordAlert{}, fmt.Errorf("alert already exists for keyword %d and post %d",
				alert.KeywordID, alert.SocialPostID)
		}
	}

	alert.ID = s.nextAlertID
	s.nextAlertID++
	s.alerts = append(s.alerts, alert)
	return alert, nil
}

// UpdateKeywordAlert applies a patch to an existing alert.
func (s *MemoryStore) UpdateKeywordAlert(ctx context.Context, id int, patch KeywordAlertPatch) (models.KeywordAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if patch.IsRead != nil {
			s.alerts[i].IsRead = *patch.IsRead
		}
		if patch.AlertSent != nil {
			s.alerts[i].AlertSent = *patch.AlertSent
		}
		if patch.Priority != nil {
			s.alerts[i].Priority = *patch.Priority
		}
		return s.alerts[i], nil
	}

	return models.KeywordAlert{}, fmt.Errorf("keyword alert %d not found", id)
}

// ListSentimentReports returns reports matching the filter, newest first.
func (s *MemoryStore) ListSentimentReports(ctx context.Context, filter SentimentReportFilter) ([]models.SentimentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.SentimentReport
	for _, r := range s.reports {
		if filter.Platform != "" && !strings.EqualFold(r.Platform, filter.Platform) {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ListUsers returns all users.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...), nil
}
