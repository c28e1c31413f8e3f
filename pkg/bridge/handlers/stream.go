// Package handlers holds the HTTP surface: the carrier media websocket,
// the dial-plan webhook, health/readiness, and the debug endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netlinkvoice/connectai/pkg/bridge/session"
	"github.com/netlinkvoice/connectai/pkg/bridge/telephony"
)

// StreamHandler upgrades the carrier's webhook connection to a websocket
// and hands it to the bridge for the life of the call.
type StreamHandler struct {
	Bridge      *session.Bridge
	Logger      *slog.Logger
	IdleTimeout time.Duration
}

func (h StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The carrier does not send an Origin header a browser would.
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := telephony.NewConn(ws, h.IdleTimeout)
	h.Bridge.HandleStream(r.Context(), conn)
}
