package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/netlinkvoice/connectai/pkg/bridge/session"
)

// DebugSessionsHandler lists live sessions for operators.
type DebugSessionsHandler struct {
	Registry *session.Registry
}

func (h DebugSessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list := h.Registry.List()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(struct {
		Count    int               `json:"count"`
		Sessions []session.Summary `json:"sessions"`
	}{Count: len(list), Sessions: list})
}

// DebugGCHandler force-closes one session by ID: /debug/gc/{session_id}.
type DebugGCHandler struct {
	Registry *session.Registry
}

func (h DebugGCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/debug/gc/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !h.Registry.ForceClose(id, "operator_gc") {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_found", "session_id": id})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "closing", "session_id": id})
}
