package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client produces a natural-language completion for an assembled prompt.
type Client interface {
	// Generate returns the completion text for prompt. An empty string
	// with a nil error means the backend answered but produced no
	// usable text; callers substitute their own fallback.
	Generate(ctx context.Context, prompt string) (string, error)
	// Configured reports whether the client holds a usable credential.
	Configured() bool
	// Name identifies the backend for health reporting and logs.
	Name() string
}

// Config controls client construction.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewClient builds a completion client for the configured provider.
// In auto mode a missing API key yields an unconfigured client so the
// server still starts and rejects chat requests per-request.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "auto"
	}

	switch provider {
	case "mock":
		return NewMockClient(), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return unconfiguredClient{}, nil
		}
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}

// unconfiguredClient stands in when no credential is available.
type unconfiguredClient struct{}

func (unconfiguredClient) Generate(context.Context, string) (string, error) {
	return "", errors.New("completion client not configured")
}

func (unconfiguredClient) Configured() bool { return false }

func (unconfiguredClient) Name() string { return "unconfigured" }
