// Package relay bridges inbound chat turns to the completion backend,
// maintaining each user's bounded conversation history as a side effect.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranalabs/kirana/internal/completion"
	"github.com/kiranalabs/kirana/internal/conversation"
	"github.com/kiranalabs/kirana/internal/observability"
)

const (
	DefaultUserID   = "defaultUser"
	DefaultLanguage = "english"

	// DefaultMaxTurns caps retained history at five exchanges.
	DefaultMaxTurns = 10

	// FallbackReply is substituted when the backend answers with no usable text.
	FallbackReply = "Sorry, I am having trouble understanding. Can you please repeat?"
	// ApologyReply is returned when the completion call fails outright.
	ApologyReply = "An error occurred while talking to the AI. Please try again."
)

var (
	ErrNotConfigured       = errors.New("credential not configured")
	ErrMissingMessage      = errors.New("message is required")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// languageLabels maps wire language keys to the label injected into the
// prompt instruction. Unknown non-empty keys are rejected up front.
var languageLabels = map[string]string{
	"english":  "English",
	"hindi":    "Hindi",
	"hinglish": "Hinglish (a mix of Hindi and English)",
}

// Request is one inbound chat turn.
type Request struct {
	Message  string
	UserID   string
	Language string
}

// Result carries the reply text for the caller. Degraded marks a reply
// synthesized locally after an upstream failure.
type Result struct {
	Reply    string
	Degraded bool
}

// Relay owns the request/response cycle for a chat turn: validate,
// load history, assemble the prompt, call the completion backend and
// write the bounded history back.
type Relay struct {
	store    conversation.Store
	client   completion.Client
	metrics  *observability.Metrics
	maxTurns int

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func New(store conversation.Store, client completion.Client, metrics *observability.Metrics, maxTurns int) *Relay {
	if maxTurns < 2 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns%2 != 0 {
		maxTurns--
	}
	return &Relay{
		store:     store,
		client:    client,
		metrics:   metrics,
		maxTurns:  maxTurns,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// HandleMessage runs one chat exchange. Upstream failures are absorbed
// into a degraded Result; only configuration, input and store faults
// surface as errors.
func (r *Relay) HandleMessage(ctx context.Context, req Request) (Result, error) {
	if r.client == nil || !r.client.Configured() {
		r.metrics.ChatRequests.WithLabelValues("error").Inc()
		return Result{}, ErrNotConfigured
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		r.metrics.ChatRequests.WithLabelValues("invalid").Inc()
		return Result{}, ErrMissingMessage
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = DefaultLanguage
	}
	label, ok := languageLabels[language]
	if !ok {
		r.metrics.ChatRequests.WithLabelValues("invalid").Inc()
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}

	chatID := uuid.NewString()

	// Serialize the whole read-modify-write cycle per user so two
	// in-flight turns cannot drop each other's history update.
	unlock := r.lockUser(userID)
	defer unlock()

	history, err := r.store.Get(ctx, userID)
	if err != nil {
		r.metrics.ChatRequests.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("load history: %w", err)
	}

	prompt := BuildPrompt(label, history, message)

	start := time.Now()
	reply, err := r.client.Generate(ctx, prompt)
	r.metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		// History stays untouched so alternation survives a failed call.
		log.Printf("chat %s: completion failed for user %s: %v", chatID, userID, err)
		r.metrics.FallbackReplies.WithLabelValues("upstream_error").Inc()
		r.metrics.ChatRequests.WithLabelValues("degraded").Inc()
		return Result{Reply: ApologyReply, Degraded: true}, nil
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Printf("chat %s: empty completion for user %s, substituting fallback", chatID, userID)
		r.metrics.FallbackReplies.WithLabelValues("empty_reply").Inc()
		reply = FallbackReply
	}

	history = append(history,
		conversation.Turn{Role: conversation.RoleUser, Text: message},
		conversation.Turn{Role: conversation.RoleModel, Text: reply},
	)
	// Evict oldest exchanges in whole pairs to preserve alternation.
	for len(history) > r.maxTurns {
		history = history[2:]
	}

	if err := r.store.Put(ctx, userID, history); err != nil {
		// The reply already exists; the turn still succeeds with a stale history.
		log.Printf("chat %s: history write failed for user %s: %v", chatID, userID, err)
	}

	r.metrics.ChatRequests.WithLabelValues("ok").Inc()
	return Result{Reply: reply}, nil
}

func (r *Relay) lockUser(userID string) func() {
	r.mu.Lock()
	l, ok := r.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.userLocks[userID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
