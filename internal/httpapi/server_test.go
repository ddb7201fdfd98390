package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/conversation"
	"github.com/kiranalabs/kirana/internal/observability"
	"github.com/kiranalabs/kirana/internal/relay"
)

var metricsSeq atomic.Int64

func newTestServer(client *stubClient) (*Server, conversation.Store) {
	cfg := config.Config{AllowAnyOrigin: true}
	store := conversation.NewInMemoryStore()
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	rly := relay.New(store, client, metrics, relay.DefaultMaxTurns)
	return New(cfg, rly, store, client.Name(), metrics), store
}

type stubClient struct {
	configured bool
	reply      string
	err        error
}

func (c *stubClient) Generate(context.Context, string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubClient) Configured() bool { return c.configured }

func (c *stubClient) Name() string { return "stub" }

func postChat(t *testing.T, url string, payload map[string]string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	res, err := http.Post(url+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat error = %v", err)
	}
	return res
}

func TestChatSuccess(t *testing.T) {
	srv, store := newTestServer(&stubClient{configured: true, reply: "Namaste! What would you like today?"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postChat(t, ts.URL, map[string]string{"message": "Hi", "userId": "u1", "language": "english"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["reply"] != "Namaste! What would you like today?" {
		t.Fatalf("reply = %q, want candidate text", payload["reply"])
	}

	history, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("store.Get error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestChatMissingMessage(t *testing.T) {
	srv, _ := newTestServer(&stubClient{configured: true, reply: "unused"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postChat(t, ts.URL, map[string]string{"userId": "u1"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "message is required" {
		t.Fatalf("error = %q, want %q", payload["error"], "message is required")
	}
	if payload["code"] != "invalid_request" {
		t.Fatalf("code = %q, want %q", payload["code"], "invalid_request")
	}
}

func TestChatMissingCredential(t *testing.T) {
	srv, _ := newTestServer(&stubClient{configured: false})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postChat(t, ts.URL, map[string]string{"message": "Hi"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "credential not configured" {
		t.Fatalf("error = %q, want %q", payload["error"], "credential not configured")
	}
	if payload["code"] != "not_configured" {
		t.Fatalf("code = %q, want %q", payload["code"], "not_configured")
	}
}

func TestChatUnsupportedLanguage(t *testing.T) {
	srv, _ := newTestServer(&stubClient{configured: true, reply: "unused"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postChat(t, ts.URL, map[string]string{"message": "Hi", "language": "french"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestChatUpstreamFailureDegrades(t *testing.T) {
	srv, store := newTestServer(&stubClient{configured: true, err: errors.New("upstream down")})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postChat(t, ts.URL, map[string]string{"message": "hello", "userId": "u1"})
	defer res.Body.Close()
	// Upstream failures degrade to a normal reply payload, not an error status.
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["reply"] != relay.ApologyReply {
		t.Fatalf("reply = %q, want apology %q", payload["reply"], relay.ApologyReply)
	}

	if history, _ := store.Get(context.Background(), "u1"); len(history) != 0 {
		t.Fatalf("history length = %d, want 0", len(history))
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(&stubClient{configured: true, reply: "ok"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	readyRes, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer readyRes.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(readyRes.Body).Decode(&payload); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if payload["store_mode"] != "in-memory" {
		t.Fatalf("store_mode = %v, want in-memory", payload["store_mode"])
	}
	if payload["completion_provider"] != "stub" {
		t.Fatalf("completion_provider = %v, want stub", payload["completion_provider"])
	}
}

func TestChatWebSocket(t *testing.T) {
	srv, _ := newTestServer(&stubClient{configured: true, reply: "Haan ji, milta hai!"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws?user_id=u1&language=hinglish"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	if res != nil {
		res.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "aata hai kya?"}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply["reply"] != "Haan ji, milta hai!" {
		t.Fatalf("reply = %q, want stub text", reply["reply"])
	}

	// An empty message on the same connection reports a frame-level error.
	if err := conn.WriteJSON(map[string]string{"message": ""}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	var errFrame map[string]string
	if err := conn.ReadJSON(&errFrame); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if errFrame["code"] != "invalid_request" {
		t.Fatalf("code = %q, want invalid_request", errFrame["code"])
	}
}
