package alerting

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mediapulse/media-pulse-bot/internal/models"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

// MockStore is a mock implementation of the storage port for failure-path
// tests; the happy paths run against storage.MemoryStore.
type MockStore struct {
	mock.Mock
}

var _ storage.Store = (*MockStore)(nil)

func (m *MockStore) ListKeywords(ctx context.Context, activeOnly bool) ([]models.Keyword, error) {
	args := m.Called(activeOnly)
	return args.Get(0).([]models.Keyword), args.Error(1)
}

func (m *MockStore) ListSocialPosts(ctx context.Context, filter storage.SocialPostFilter) ([]models.SocialPost, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.SocialPost), args.Error(1)
}

func (m *MockStore) ListKeywordAlerts(ctx context.Context, filter storage.KeywordAlertFilter) ([]models.KeywordAlert, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.KeywordAlert), args.Error(1)
}

func (m *MockStore) CreateKeywordAlert(ctx context.Context, alert models.KeywordAlert) (models.KeywordAlert, error) {
	args := m.Called(alert)
	return args.Get(0).(models.KeywordAlert), args.Error(1)
}

func (m *MockStore) UpdateKeywordAlert(ctx context.Context, id int, patch storage.KeywordAlertPatch) (models.KeywordAlert, error) {
	args := m.Called(id, patch)
	return args.Get(0).(models.KeywordAlert), args.Error(1)
}

func (m *MockStore) ListSentimentReports(ctx context.Context, filter storage.SentimentReportFilter) ([]models.SentimentReport, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.SentimentReport), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	return args.Get(0).([]models.User), args.Error(1)
}
