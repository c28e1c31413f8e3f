// Package metrics exposes the bridge's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "connectai_active_sessions",
		Help: "Sessions currently registered.",
	})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connectai_sessions_started_total",
		Help: "Sessions that reached the Active state.",
	})

	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connectai_sessions_closed_total",
		Help: "Sessions torn down, by reason.",
	}, []string{"reason"})

	InboundFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connectai_inbound_frames_total",
		Help: "Telephony media frames forwarded to the agent runtime.",
	})

	OutboundFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connectai_outbound_frames_total",
		Help: "Agent audio frames sent back to telephony.",
	})

	DroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connectai_dropped_frames_total",
		Help: "Frames dropped without terminating the session, by cause.",
	}, []string{"cause"})

	Interrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connectai_barge_ins_total",
		Help: "Barge-in interrupts propagated as clear events.",
	})
)
