// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/npcsociety/npcd/internal/transcript"
)

// Config holds all application configuration.
type Config struct {
	Port              string
	LogLevel          slog.Level
	AllowedOrigin     string
	DBPath            string
	DirectiveTimeout  time.Duration
	SweepInterval     time.Duration
	OutboundQueueSize int
	JournalRetention  time.Duration
	JanitorInterval   time.Duration
	Transcript        transcript.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8420"),
		LogLevel:          getEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", ""),
		DBPath:            getEnv("DB_PATH", "./data/npcd.db"),
		DirectiveTimeout:  getEnvDuration("DIRECTIVE_TIMEOUT", 30*time.Second),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", 5*time.Second),
		OutboundQueueSize: getEnvInt("OUTBOUND_QUEUE_SIZE", 256),
		JournalRetention:  getEnvDuration("JOURNAL_RETENTION", 7*24*time.Hour),
		JanitorInterval:   getEnvDuration("JANITOR_INTERVAL", time.Hour),
		Transcript: transcript.Config{
			Enabled:       getEnvBool("TRANSCRIPT_ENABLED", true),
			Dir:           getEnv("TRANSCRIPT_DIR", "./data/transcripts"),
			GlobalEnabled: getEnvBool("TRANSCRIPT_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("TRANSCRIPT_GLOBAL_PATH", "./data/transcripts/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DirectiveTimeout <= 0 {
		return fmt.Errorf("DIRECTIVE_TIMEOUT must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.OutboundQueueSize <= 0 {
		return fmt.Errorf("OUTBOUND_QUEUE_SIZE must be > 0")
	}
	if c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_DIR cannot be empty")
	}
	if c.Transcript.GlobalPath == "" {
		return fmt.Errorf("TRANSCRIPT_GLOBAL_PATH cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if no origin restriction is configured or the
// allowed origin points at a local address.
func (c *Config) IsDevelopment() bool {
	return c.AllowedOrigin == "" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvLogLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
