package completion

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no generative
// backend is available.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	line := lastNonEmptyLine(prompt)
	if line == "" {
		return "Namaste! What would you like today?", nil
	}
	return fmt.Sprintf("Namaste! You asked: %s. We should have that in stock.", line), nil
}

func (c *MockClient) Configured() bool { return true }

func (c *MockClient) Name() string { return "mock" }

// lastNonEmptyLine picks the current user message out of the assembled
// prompt so local runs still feel conversational.
func lastNonEmptyLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
