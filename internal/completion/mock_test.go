package completion

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMockClientEchoesCurrentMessage(t *testing.T) {
	c := NewMockClient()
	reply, err := c.Generate(context.Background(), "Conversation History:\nuser: hi\n\nCurrent User Message:\ndo you have sugar?")
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(reply, "do you have sugar?") {
		t.Fatalf("reply %q does not echo the current message", reply)
	}
}

func TestMockClientHonorsCancelledContext(t *testing.T) {
	c := NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Generate(ctx, "hello"); err == nil {
		t.Fatalf("Generate with cancelled context error = nil, want error")
	}
}

func TestNewClientAutoWithoutKeyIsUnconfigured(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := NewClient(ctx, Config{Provider: "auto"})
	if err != nil {
		t.Fatalf("NewClient error = %v", err)
	}
	if c.Configured() {
		t.Fatalf("Configured() = true, want false without an api key")
	}
	if _, err := c.Generate(ctx, "hi"); err == nil {
		t.Fatalf("Generate on unconfigured client error = nil, want error")
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{Provider: "llama"}); err == nil {
		t.Fatalf("NewClient(llama) error = nil, want error")
	}
}
