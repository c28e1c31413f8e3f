package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netlinkvoice/connectai/pkg/bridge/config"
	"github.com/netlinkvoice/connectai/pkg/bridge/handlers"
	"github.com/netlinkvoice/connectai/pkg/bridge/mw"
	"github.com/netlinkvoice/connectai/pkg/bridge/session"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// New assembles the route table around an already-wired bridge. db may be
// nil when persistence is disabled.
func New(cfg config.Config, logger *slog.Logger, bridge *session.Bridge, db handlers.Pinger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes(bridge, db)
	return s
}

func (s *Server) routes(bridge *session.Bridge, db handlers.Pinger) {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Registry: bridge.Registry, DB: db})
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.Handle("/stream", handlers.StreamHandler{
		Bridge:      bridge,
		Logger:      s.logger,
		IdleTimeout: s.cfg.IdleTimeout,
	})

	s.mux.Handle("/api/v1/call", handlers.CallHandler{
		Logger:     s.logger,
		PublicHost: s.cfg.PublicHost,
	})
	s.mux.Handle("/api/v1/end", handlers.CallEndHandler{
		Registry: bridge.Registry,
		Logger:   s.logger,
	})

	s.mux.Handle("/debug/sessions", handlers.DebugSessionsHandler{Registry: bridge.Registry})
	s.mux.Handle("/debug/gc/", handlers.DebugGCHandler{Registry: bridge.Registry})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
