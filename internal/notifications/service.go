package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/models"
)

// Service handles sending alert notifications via email and webhook push
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// WebhookMessage is the message-card payload posted to the configured webhook
type WebhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []WebhookSection `json:"sections,omitempty"`
}

type WebhookSection struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	ActivityText  string        `json:"activityText,omitempty"`
	Facts         []WebhookFact `json:"facts,omitempty"`
	Markdown      bool          `json:"markdown,omitempty"`
}

type WebhookFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Subject lines per language. Arabic is the platform's second UI language.
var keywordSubjects = map[string]string{
	"en": "Keyword Alert: \"%s\" matched in monitored content",
	"ar": "تنبيه كلمة مفتاحية: \"%s\"",
}

var sentimentSubjects = map[string]string{
	"en": "Sentiment Shift Alert: %s",
	"ar": "تنبيه تغير المشاعر: %s",
}

func subjectFor(table map[string]string, lang, fallback, arg string) string {
	format, ok := table[lang]
	if !ok {
		format = table[fallback]
	}
	if format == "" {
		format = table["en"]
	}
	return fmt.Sprintf(format, arg)
}

// SendKeywordAlertEmail notifies a recipient that monitored content matched a keyword
func (s *Service) SendKeywordAlertEmail(keyword, postContent, recipient, lang string) error {
	subject := subjectFor(keywordSubjects, lang, s.config.DefaultLanguage, keyword)

	htmlBody, err := s.buildKeywordAlertHTML(keyword, postContent)
	if err != nil {
		return fmt.Errorf("failed to build keyword alert email: %w", err)
	}

	textBody := fmt.Sprintf("Keyword alert\n=============\nKeyword: %s\n\nMatched content:\n%s\n", keyword, postContent)

	var errors []string

	if err := s.sendEmail(recipient, subject, textBody, htmlBody); err != nil {
		logrus.Errorf("Failed to send keyword alert email to %s: %v", recipient, err)
		errors = append(errors, fmt.Sprintf("email: %v", err))
	}

	if s.config.WebhookURL != "" {
		if err := s.pushWebhook(s.buildKeywordWebhookMessage(keyword, postContent)); err != nil {
			logrus.Errorf("Failed to push keyword alert webhook: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendSentimentAlertEmail notifies a recipient about a detected sentiment shift
func (s *Service) SendSentimentAlertEmail(shift *models.SentimentShift, recipient, lang string) error {
	subject := subjectFor(sentimentSubjects, lang, s.config.DefaultLanguage, shift.Platform)

	htmlBody, err := s.buildSentimentAlertHTML(shift)
	if err != nil {
		return fmt.Errorf("failed to build sentiment alert email: %w", err)
	}

	textBody := s.buildSentimentAlertText(shift)

	var errors []string

	if err := s.sendEmail(recipient, subject, textBody, htmlBody); err != nil {
		logrus.Errorf("Failed to send sentiment alert email to %s: %v", recipient, err)
		errors = append(errors, fmt.Sprintf("email: %v", err))
	}

	if s.config.WebhookURL != "" {
		if err := s.pushWebhook(s.buildSentimentWebhookMessage(shift)); err != nil {
			logrus.Errorf("Failed to push sentiment alert webhook: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendEmail(recipient, subject, textBody, htmlBody string) error {
	if s.config.SMTPHost == "" {
		// Dev mode: no SMTP configured, log instead of failing every alert
		logrus.Infof("SMTP not configured, skipping email to %s: %s", recipient, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) pushWebhook(message *WebhookMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildKeywordWebhookMessage(keyword, postContent string) *WebhookMessage {
	return &WebhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Keyword Alert: %s", keyword),
		Text:    "Monitored content matched a tracked keyword",
		Sections: []WebhookSection{
			{
				ActivityTitle: "Matched content",
				ActivityText:  truncate(postContent, 300),
				Markdown:      true,
			},
		},
	}
}

func (s *Service) buildSentimentWebhookMessage(shift *models.SentimentShift) *WebhookMessage {
	facts := []WebhookFact{
		{Name: "Platform", Value: shift.Platform},
		{Name: "Priority", Value: shift.Priority},
	}

	for axis, change := range shift.Changes {
		facts = append(facts, WebhookFact{
			Name:  fmt.Sprintf("%s change", strings.Title(axis)),
			Value: fmt.Sprintf("%+d%%", change),
		})
	}

	return &WebhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Sentiment Shift Alert - %s", shift.Platform),
		Text:    fmt.Sprintf("Aggregate sentiment on %s moved beyond the alert threshold", shift.Platform),
		Sections: []WebhookSection{
			{
				ActivityTitle: "Shift details",
				Facts:         facts,
				Markdown:      true,
			},
		},
	}
}

func (s *Service) buildKeywordAlertHTML(keyword, postContent string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Keyword Alert</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .content { border-left: 4px solid #0078d4; padding: 10px; margin: 20px 0; background-color: #fafafa; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Keyword Alert</h1>
        <p>The keyword <strong>{{.Keyword}}</strong> matched newly monitored content.</p>
    </div>

    <div class="content">
        <p>{{.Content | truncate 300}}</p>
    </div>

    <hr>
    <p><small>This alert was generated automatically by the Media Pulse monitoring service.</small></p>
</body>
</html>
`

	t := template.New("keyword-alert").Funcs(template.FuncMap{
		"truncate": func(length int, s string) string {
			return truncate(s, length)
		},
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := struct {
		Keyword string
		Content string
	}{keyword, postContent}

	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildSentimentAlertHTML(shift *models.SentimentShift) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Sentiment Shift Alert</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #d13438; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Sentiment Shift Alert - {{.Platform}}</h1>
        <p>Detected {{.DetectedAt.Format "January 2, 2006 at 3:04 PM UTC"}} | Priority: {{.Priority}}</p>
    </div>

    <div class="summary">
        <h2>Changes</h2>
        {{range $axis, $change := .Changes}}
            <p><strong>{{$axis | title}}:</strong> {{printf "%+d" $change}}%</p>
        {{end}}
        {{if .Current}}
        <h2>Current Counts</h2>
        <p>Positive: {{.Current.Positive}} | Neutral: {{.Current.Neutral}} | Negative: {{.Current.Negative}}</p>
        {{end}}
    </div>

    <hr>
    <p><small>This alert was generated automatically by the Media Pulse monitoring service.</small></p>
</body>
</html>
`

	t := template.New("sentiment-alert").Funcs(template.FuncMap{
		"title": strings.Title,
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, shift); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildSentimentAlertText(shift *models.SentimentShift) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Sentiment Shift Alert - %s\n", shift.Platform))
	text.WriteString(fmt.Sprintf("Detected: %s\n", shift.DetectedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Priority: %s\n\n", shift.Priority))

	text.WriteString("CHANGES\n")
	text.WriteString("=======\n")
	for axis, change := range shift.Changes {
		text.WriteString(fmt.Sprintf("%s: %+d%%\n", strings.Title(axis), change))
	}

	if shift.Previous != nil && shift.Current != nil {
		text.WriteString("\nCOUNTS\n")
		text.WriteString("======\n")
		text.WriteString(fmt.Sprintf("Previous: positive %d, neutral %d, negative %d\n",
			shift.Previous.Positive, shift.Previous.Neutral, shift.Previous.Negative))
		text.WriteString(fmt.Sprintf("Current:  positive %d, neutral %d, negative %d\n",
			shift.Current.Positive, shift.Current.Neutral, shift.Current.Negative))
	}

	text.WriteString("\n---\nThis alert was generated automatically by the Media Pulse monitoring service.\n")

	return text.String()
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
