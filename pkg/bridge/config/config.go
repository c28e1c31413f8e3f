package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Gemini Live upstream.
	GeminiAPIKey string
	Model        string
	VoiceName    string
	SystemPrompt string

	// Postgres persistence. Empty disables persistence entirely; calls
	// still run with the default agent.
	DatabaseURL   string
	RunMigrations bool

	// Public base URL used when rendering dial-plan XML for the carrier.
	PublicHost string

	// Per-call timing.
	IdleTimeout time.Duration
	GracePeriod time.Duration

	// Async persistence dispatcher.
	RecorderWorkers   int
	RecorderQueueSize int
	RecorderTimeout   time.Duration

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("CONNECTAI_ADDR", ":8080"),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:               envOr("CONNECTAI_MODEL", ""),
		VoiceName:           envOr("CONNECTAI_VOICE", ""),
		SystemPrompt:        os.Getenv("CONNECTAI_SYSTEM_PROMPT"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RunMigrations:       envBoolOr("CONNECTAI_RUN_MIGRATIONS", true),
		PublicHost:          envOr("CONNECTAI_PUBLIC_HOST", "localhost:8080"),
		IdleTimeout:         envDurationOr("CONNECTAI_IDLE_TIMEOUT", 60*time.Second),
		GracePeriod:         envDurationOr("CONNECTAI_GRACE_PERIOD", 5*time.Second),
		RecorderWorkers:     envIntOr("CONNECTAI_RECORDER_WORKERS", 2),
		RecorderQueueSize:   envIntOr("CONNECTAI_RECORDER_QUEUE", 256),
		RecorderTimeout:     envDurationOr("CONNECTAI_RECORDER_TIMEOUT", 5*time.Second),
		ReadHeaderTimeout:   envDurationOr("CONNECTAI_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("CONNECTAI_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if cfg.IdleTimeout <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_IDLE_TIMEOUT must be > 0")
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_GRACE_PERIOD must be > 0")
	}
	if cfg.RecorderWorkers <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_RECORDER_WORKERS must be > 0")
	}
	if cfg.RecorderQueueSize <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_RECORDER_QUEUE must be > 0")
	}
	if cfg.RecorderTimeout <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_RECORDER_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("CONNECTAI_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if strings.TrimSpace(cfg.PublicHost) == "" {
		return Config{}, fmt.Errorf("CONNECTAI_PUBLIC_HOST must not be empty")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
