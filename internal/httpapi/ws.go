package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiranalabs/kirana/internal/relay"
)

const (
	wsReadLimit     = 64 << 10
	wsReadDeadline  = 5 * time.Minute
	wsWriteDeadline = 10 * time.Second
)

// handleChatWS runs a request/reply chat exchange over a websocket.
// Query parameters user_id and language act as per-connection defaults;
// each text frame carries the same JSON shape as POST /api/chat.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	defaultUserID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	defaultLanguage := strings.TrimSpace(r.URL.Query().Get("language"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.metrics.WSMessages.WithLabelValues("inbound").Inc()

		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeWS(conn, errorResponse{Error: "invalid message: " + err.Error(), Code: "invalid_request"})
			continue
		}
		if strings.TrimSpace(req.UserID) == "" {
			req.UserID = defaultUserID
		}
		if strings.TrimSpace(req.Language) == "" {
			req.Language = defaultLanguage
		}

		res, err := s.relay.HandleMessage(r.Context(), relay.Request{
			Message:  req.Message,
			UserID:   req.UserID,
			Language: req.Language,
		})
		if err != nil {
			s.writeWS(conn, wsErrorFor(err))
			continue
		}
		s.writeWS(conn, chatResponse{Reply: res.Reply})
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	if err := conn.WriteJSON(v); err != nil {
		return
	}
	s.metrics.WSMessages.WithLabelValues("outbound").Inc()
}

func wsErrorFor(err error) errorResponse {
	switch {
	case errors.Is(err, relay.ErrNotConfigured):
		return errorResponse{Error: err.Error(), Code: "not_configured"}
	case errors.Is(err, relay.ErrMissingMessage), errors.Is(err, relay.ErrUnsupportedLanguage):
		return errorResponse{Error: err.Error(), Code: "invalid_request"}
	default:
		return errorResponse{Error: "internal error", Code: "internal_error"}
	}
}
