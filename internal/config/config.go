package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	CompletionProvider string
	GeminiAPIKey       string
	GeminiModel        string
	CompletionTimeout  time.Duration

	// HistoryMaxTurns caps how many turns are retained per user. Must be
	// even so eviction always removes whole user/model pairs.
	HistoryMaxTurns int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "kirana"),
		AllowAnyOrigin:     false,
		CompletionProvider: envOrDefault("COMPLETION_PROVIDER", "auto"),
		GeminiAPIKey:       envTrimmed("GEMINI_API_KEY"),
		GeminiModel:        envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		DatabaseURL:        envTrimmed("DATABASE_URL"),
		ShutdownTimeout:    15 * time.Second,
		CompletionTimeout:  60 * time.Second,
		HistoryMaxTurns:    10,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("APP_COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryMaxTurns, err = intFromEnv("APP_HISTORY_MAX_TURNS", cfg.HistoryMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.CompletionProvider)) {
	case "auto", "gemini", "mock":
	default:
		return Config{}, fmt.Errorf("invalid COMPLETION_PROVIDER: %q (expected auto|gemini|mock)", cfg.CompletionProvider)
	}
	if cfg.HistoryMaxTurns < 2 {
		return Config{}, fmt.Errorf("APP_HISTORY_MAX_TURNS must be at least 2")
	}
	if cfg.HistoryMaxTurns%2 != 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_MAX_TURNS must be even")
	}
	if cfg.CompletionTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_COMPLETION_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
