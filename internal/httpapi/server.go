package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/conversation"
	"github.com/kiranalabs/kirana/internal/observability"
	"github.com/kiranalabs/kirana/internal/relay"
)

// ChatRelay is the single operation the HTTP surface forwards to.
type ChatRelay interface {
	HandleMessage(ctx context.Context, req relay.Request) (relay.Result, error)
}

type Server struct {
	cfg      config.Config
	relay    ChatRelay
	store    conversation.Store
	provider string
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chatRelay ChatRelay, store conversation.Store, provider string, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		relay:    chatRelay,
		store:    store,
		provider: provider,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up; other sites must not
				// be able to drive a user's chat session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ready",
		"completion_provider": s.provider,
		"store_mode":          s.storeMode(),
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
	UserID   string `json:"userId"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.relay.HandleMessage(r.Context(), relay.Request{
		Message:  req.Message,
		UserID:   req.UserID,
		Language: req.Language,
	})
	if err != nil {
		s.respondRelayError(w, err)
		return
	}

	if n, err := s.store.Count(r.Context()); err == nil {
		s.metrics.TrackedConversations.Set(float64(n))
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: res.Reply})
}

func (s *Server) respondRelayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relay.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, "not_configured", err.Error())
	case errors.Is(err, relay.ErrMissingMessage), errors.Is(err, relay.ErrUnsupportedLanguage):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) == "" {
		return "in-memory"
	}
	return "postgres"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
