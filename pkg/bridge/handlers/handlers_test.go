package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netlinkvoice/connectai/pkg/bridge/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCallWebhookReturnsConnectStream(t *testing.T) {
	h := CallHandler{Logger: testLogger(), PublicHost: "bridge.example.com"}

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/call?AccountDomain=acme.example.com&TermCallID=T1&NmsAni=15551230000&OrigCallID=O1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("content type = %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`url="wss://bridge.example.com/stream"`,
		`action="/api/v1/end"`,
		`<Parameter name="AccountDomain" value="acme.example.com"`,
		`<Parameter name="OrigCallID" value="O1"`,
		`<Parameter name="NmsAni" value="15551230000"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestCallWebhookFallsBackToRequestHost(t *testing.T) {
	h := CallHandler{Logger: testLogger()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/call", nil)
	req.Host = "edge-3.example.net"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "wss://edge-3.example.net/stream") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCallEndWebhookWithoutSession(t *testing.T) {
	h := CallEndHandler{Registry: session.NewRegistry(), Logger: testLogger()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/end?TermCallID=unknown", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("status field = %q", resp["status"])
	}
}

func TestDebugSessionsEmpty(t *testing.T) {
	h := DebugSessionsHandler{Registry: session.NewRegistry()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/sessions", nil))

	var resp struct {
		Count    int               `json:"count"`
		Sessions []session.Summary `json:"sessions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("count = %d, want 0", resp.Count)
	}
}

func TestDebugGCNotFound(t *testing.T) {
	h := DebugGCHandler{Registry: session.NewRegistry()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/debug/gc/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDebugGCRequiresPost(t *testing.T) {
	h := DebugGCHandler{Registry: session.NewRegistry()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/gc/x", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestReadyzWithoutDatabase(t *testing.T) {
	h := ReadyHandler{Registry: session.NewRegistry()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		OK       bool   `json:"ok"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.Database != "disabled" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestStreamHandlerUpgradesAndClosesOnStop(t *testing.T) {
	b := &session.Bridge{
		Registry:    session.NewRegistry(),
		Logger:      testLogger(),
		GracePeriod: time.Second,
	}
	srv := httptest.NewServer(StreamHandler{Bridge: b, Logger: testLogger(), IdleTimeout: 5 * time.Second})
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	// A stop before any start ends the call without a session.
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"stop","stop":{"reason":"test"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Fatalf("expected server to close the connection")
	}
}
