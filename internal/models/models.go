package models

import "time"

// Alert priority levels, ordered from least to most urgent.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Keyword represents a monitored term configured by the communications team.
// Keywords are managed through the CRUD surface; the alert engine only reads them.
type Keyword struct {
	ID               int    `json:"id"`
	Word             string `json:"word"`
	Category         string `json:"category,omitempty"`
	IsActive         bool   `json:"is_active"`
	AlertThreshold   *int   `json:"alert_threshold,omitempty"`
	ChangePercentage *int   `json:"change_percentage,omitempty"`
}

// SocialPost is a unit of ingested content from a social or news platform.
// Sentiment is a 0-100 score back-filled by the NLP pipeline; nil means the
// post has not been analyzed yet.
type SocialPost struct {
	ID        int       `json:"id"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	Sentiment *int      `json:"sentiment,omitempty"`
	PostedAt  time.Time `json:"posted_at"`
	Keywords  []string  `json:"keywords,omitempty"`
}

// KeywordAlert records that a monitored keyword matched a post. Exactly one
// alert exists per (KeywordID, SocialPostID) pair. Priority is empty when the
// triggering post has no sentiment score.
type KeywordAlert struct {
	ID           int       `json:"id"`
	KeywordID    int       `json:"keyword_id"`
	SocialPostID int       `json:"social_post_id"`
	AlertDate    time.Time `json:"alert_date"`
	IsRead       bool      `json:"is_read"`
	AlertSent    bool      `json:"alert_sent"`
	Priority     string    `json:"priority,omitempty"`
}

// SentimentReport holds aggregate sentiment counts (not percentages) for one
// platform over one reporting period.
type SentimentReport struct {
	ID       int       `json:"id"`
	Date     time.Time `json:"date"`
	Platform string    `json:"platform,omitempty"`
	Positive int       `json:"positive"`
	Neutral  int       `json:"neutral"`
	Negative int       `json:"negative"`
}

// User is a dashboard user. Alert notifications go to admins and editors.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Language string `json:"language,omitempty"`
}

// SentimentShift describes a detected swing in aggregate sentiment between the
// two most recent reports for a platform. Changes carries every delta that
// crossed the threshold, keyed "positive"/"negative" - both axes can shift in
// the same run.
type SentimentShift struct {
	Platform   string           `json:"platform"`
	Previous   *SentimentReport `json:"previous_report"`
	Current    *SentimentReport `json:"current_report"`
	Changes    map[string]int   `json:"changes"`
	Priority   string           `json:"priority"`
	DetectedAt time.Time        `json:"detected_at"`
}

// KeywordMatch is the realtime payload emitted when a keyword alert is created.
type KeywordMatch struct {
	Keyword string        `json:"keyword"`
	Post    *SocialPost   `json:"data"`
	Alert   *KeywordAlert `json:"alert,omitempty"`
}

// RunResult summarizes one alert-detection run.
type RunResult struct {
	KeywordAlerts   int `json:"keyword_alerts"`
	SentimentAlerts int `json:"sentiment_alerts"`
}
