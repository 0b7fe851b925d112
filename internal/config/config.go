package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Alert detection
	CheckIntervalMinutes  int
	LookbackWindowMinutes int
	DefaultAlertThreshold int
	DefaultLanguage       string
	Platforms             []string

	// Realtime delivery
	HeartbeatIntervalMinutes int
	BufferCycleMinutes       int
	MinFlushDelaySeconds     int

	// Notification configuration
	WebhookURL   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// Azure Storage configuration (alert-run snapshot archive, optional)
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		CheckIntervalMinutes:  getIntEnv("CHECK_INTERVAL_MINUTES", 30),
		LookbackWindowMinutes: getIntEnv("LOOKBACK_WINDOW_MINUTES", 60),
		DefaultAlertThreshold: getIntEnv("DEFAULT_ALERT_THRESHOLD", 10),
		DefaultLanguage:       getEnv("DEFAULT_LANGUAGE", "en"),
		Platforms: getSliceEnv("PLATFORMS", []string{
			"Twitter",
			"Facebook",
			"Instagram",
			"News",
		}),

		HeartbeatIntervalMinutes: getIntEnv("HEARTBEAT_INTERVAL_MINUTES", 4),
		BufferCycleMinutes:       getIntEnv("BUFFER_CYCLE_MINUTES", 15),
		MinFlushDelaySeconds:     getIntEnv("MIN_FLUSH_DELAY_SECONDS", 30),

		WebhookURL:   getEnv("WEBHOOK_URL", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "alert-runs"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must be positive")
	}

	if c.LookbackWindowMinutes <= 0 {
		return fmt.Errorf("LOOKBACK_WINDOW_MINUTES must be positive")
	}

	if c.BufferCycleMinutes <= 0 {
		return fmt.Errorf("BUFFER_CYCLE_MINUTES must be positive")
	}

	if len(c.Platforms) == 0 {
		return fmt.Errorf("PLATFORMS must list at least one platform to track")
	}

	if c.SMTPHost != "" {
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD are required when SMTP_HOST is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
