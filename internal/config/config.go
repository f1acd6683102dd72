// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the optional settings.
const (
	DefaultTrackerID        = 5 // 課題
	DefaultPendingStatusID  = 4 // 審査待ち
	DefaultApprovedStatusID = 3 // 審査通過
	DefaultPort             = 3000
	DefaultUpdateInterval   = 10 * time.Second
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	RedmineURL       string        // base URL of the Redmine instance
	APIKey           string        // Redmine API key, sent on every upstream call
	TrackerID        int           // tracker id of the course tickets
	PendingStatusID  int           // status id for tickets awaiting review
	ApprovedStatusID int           // status id tickets are moved to on approval
	Port             int           // HTTP listen port
	LogLevel         string        // debug, info, warn, error
	UpdateInterval   time.Duration // dashboard poll interval
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present, real environment variables win.
// Missing or invalid values are returned as errors; main aborts on them.
func Load() (*Config, error) {
	// Ignore a missing .env file, it is a convenience for development.
	_ = godotenv.Load()

	cfg := &Config{
		RedmineURL: os.Getenv("REDMINE_URL"),
		APIKey:     os.Getenv("REDMINE_API_KEY"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RedmineURL == "" {
		return nil, fmt.Errorf("REDMINE_URL is not configured")
	}
	if cfg.APIKey == "" || cfg.APIKey == "YOUR_API_KEY_HERE" {
		return nil, fmt.Errorf("REDMINE_API_KEY is not configured")
	}

	var err error
	if cfg.TrackerID, err = getEnvInt("TRACKER_ID", DefaultTrackerID); err != nil {
		return nil, err
	}
	if cfg.PendingStatusID, err = getEnvInt("PENDING_STATUS_ID", DefaultPendingStatusID); err != nil {
		return nil, err
	}
	if cfg.ApprovedStatusID, err = getEnvInt("APPROVED_STATUS_ID", DefaultApprovedStatusID); err != nil {
		return nil, err
	}
	if cfg.Port, err = getEnvInt("PORT", DefaultPort); err != nil {
		return nil, err
	}

	intervalMs, err := getEnvInt("UPDATE_INTERVAL_MS", int(DefaultUpdateInterval/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.UpdateInterval = time.Duration(intervalMs) * time.Millisecond

	if cfg.TrackerID <= 0 {
		return nil, fmt.Errorf("invalid TRACKER_ID: %d", cfg.TrackerID)
	}
	if cfg.PendingStatusID <= 0 {
		return nil, fmt.Errorf("invalid PENDING_STATUS_ID: %d", cfg.PendingStatusID)
	}
	if cfg.ApprovedStatusID <= 0 {
		return nil, fmt.Errorf("invalid APPROVED_STATUS_ID: %d", cfg.ApprovedStatusID)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.UpdateInterval <= 0 {
		return nil, fmt.Errorf("invalid UPDATE_INTERVAL_MS: %d", intervalMs)
	}

	return cfg, nil
}

// getEnv returns the value of key or fallback when unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of key or fallback when unset.
func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
