package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient talks to the Gemini API. The whole prompt is sent as a
// single user-role content; the persona instruction rides in the body,
// not in a system instruction.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	// Only the first candidate's first part carries the chat reply.
	// A response without one is a shape deviation, not a failure.
	if len(res.Candidates) == 0 {
		return "", nil
	}
	content := res.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", nil
	}
	return content.Parts[0].Text, nil
}

func (c *GeminiClient) Configured() bool { return true }

func (c *GeminiClient) Name() string { return "gemini" }
