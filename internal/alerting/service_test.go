package alerting

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/models"
)

// MockNotifier is a mock implementation of the notification sink
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendKeywordAlertEmail(keyword, postContent, recipient, lang string) error {
	args := m.Called(keyword, postContent, recipient, lang)
	return args.Error(0)
}

func (m *MockNotifier) SendSentimentAlertEmail(shift *models.SentimentShift, recipient, lang string) error {
	args := m.Called(shift, recipient, lang)
	return args.Error(0)
}

// recordingDispatcher captures enqueued updates for assertions
type recordingDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

type dispatchedEvent struct {
	Type    string
	Payload interface{}
}

func (d *recordingDispatcher) Enqueue(updateType string, payload interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, dispatchedEvent{Type: updateType, Payload: payload})
}

func (d *recordingDispatcher) eventsOfType(updateType string) []dispatchedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result []dispatchedEvent
	for _, e := range d.events {
		if e.Type == updateType {
			result = append(result, e)
		}
	}
	return result
}

func testConfig() *config.Config {
	return &config.Config{
		CheckIntervalMinutes:  30,
		LookbackWindowMinutes: 60,
		DefaultAlertThreshold: 10,
		DefaultLanguage:       "en",
		Platforms:             []string{"Twitter", "Facebook", "Instagram", "News"},
	}
}

func intPtr(v int) *int {
	return &v
}

func TestCalculateChange(t *testing.T) {
	tests := []struct {
		name     string
		oldValue int
		newValue int
		expected int
	}{
		{"both zero", 0, 0, 0},
		{"growth from zero", 0, 5, 100},
		{"decrease", 40, 30, -25},
		{"increase", 100, 110, 10},
		{"drop to zero", 20, 0, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateChange(tt.oldValue, tt.newValue))
		})
	}
}

func TestKeywordPriority(t *testing.T) {
	tests := []struct {
		name      string
		sentiment *int
		expected  string
	}{
		{"very negative post", intPtr(25), models.PriorityHigh},
		{"boundary at thirty", intPtr(30), models.PriorityMedium},
		{"middling post", intPtr(45), models.PriorityMedium},
		{"boundary at sixty", intPtr(60), models.PriorityLow},
		{"positive post", intPtr(80), models.PriorityLow},
		{"unanalyzed post", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, keywordPriority(tt.sentiment))
		})
	}
}

func TestPriorityFromScore(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		expected string
	}{
		{"high score", 80, models.PriorityLow},
		{"boundary seventy", 70, models.PriorityMedium},
		{"mid score", 50, models.PriorityMedium},
		{"boundary forty", 40, models.PriorityHigh},
		{"low score", 30, models.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, priorityFromScore(tt.score))
		})
	}
}

func TestCheckForAlertsAbsorbsDetectorFailures(t *testing.T) {
	store := &MockStore{}
	store.On("ListKeywords", true).Return([]models.Keyword(nil), assert.AnError)
	store.On("ListSentimentReports", mock.Anything).Return([]models.SentimentReport(nil), assert.AnError)

	notifier := &MockNotifier{}
	dispatcher := &recordingDispatcher{}
	service := NewService(testConfig(), store, notifier, dispatcher)

	result := service.CheckForAlerts(context.Background())

	assert.Equal(t, 0, result.KeywordAlerts)
	assert.Equal(t, 0, result.SentimentAlerts)
	assert.Empty(t, dispatcher.events)
}
