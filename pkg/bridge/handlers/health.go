package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/netlinkvoice/connectai/pkg/bridge/session"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Pinger is the readiness view of the database pool. Nil means
// persistence is disabled and readiness skips the check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ReadyHandler struct {
	Registry *session.Registry
	DB       Pinger
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool     `json:"ok"`
		ActiveSessions int      `json:"active_sessions"`
		Database       string   `json:"database"`
		Issues         []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 2)
	database := "disabled"
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			database = "unreachable"
			issues = append(issues, "database ping failed: "+err.Error())
		} else {
			database = "ok"
		}
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:             ok,
		ActiveSessions: h.Registry.Len(),
		Database:       database,
		Issues:         issues,
	})
}
