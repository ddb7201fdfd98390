package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at priya@example.com or +91 98765 43210 and charge 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactUPIHandle(t *testing.T) {
	out, changed := RedactPII("You can pay me at ramesh123@okaxis before pickup.")
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	if !strings.Contains(out, "[REDACTED_UPI]") {
		t.Fatalf("output missing UPI marker: %q", out)
	}
	if strings.Contains(out, "okaxis") {
		t.Fatalf("UPI handle leaked: %q", out)
	}
}

func TestRedactEmailNotDoubleCountedAsUPI(t *testing.T) {
	out, _ := RedactPII("Reach me at priya@example.com please.")
	if !strings.Contains(out, "[REDACTED_EMAIL]") {
		t.Fatalf("output missing email marker: %q", out)
	}
	if strings.Contains(out, "[REDACTED_UPI]") {
		t.Fatalf("email was redacted as UPI: %q", out)
	}
}

func TestRedactPIINoMatch(t *testing.T) {
	input := "Do you have basmati rice in stock?"
	out, changed := RedactPII(input)
	if changed {
		t.Fatalf("changed = true, want false")
	}
	if out != input {
		t.Fatalf("output = %q, want unchanged input", out)
	}
}
