package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
	"github.com/netlinkvoice/connectai/pkg/bridge/metrics"
	"github.com/netlinkvoice/connectai/pkg/bridge/store"
	"github.com/netlinkvoice/connectai/pkg/bridge/telephony"
)

const lookupTimeout = 3 * time.Second

// Bridge wires a carrier media stream to an agent runtime session. One
// Bridge serves the whole process; one HandleStream call serves one call.
type Bridge struct {
	Runtime  agent.Runtime
	Store    store.Store
	Recorder *store.Recorder
	Registry *Registry
	Logger   *slog.Logger

	// Defaults seeds the agent configuration when the tenant lookup has
	// nothing better. Blank fields fall back to the package defaults.
	Defaults agent.Config

	// GracePeriod bounds how long teardown waits for the pumps to
	// observe cancellation before abandoning them.
	GracePeriod time.Duration
}

// HandleStream drives the read loop for one carrier connection. It blocks
// until the call ends, then waits for the session's teardown to complete
// before returning.
func (b *Bridge) HandleStream(ctx context.Context, conn Transport) {
	var sess *Session
	defer func() {
		if sess == nil {
			_ = conn.Close()
			return
		}
		sess.BeginClose("transport_closed")
		<-sess.Closed()
	}()

	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			switch {
			case errors.Is(err, telephony.ErrIdleTimeout):
				// Treated the same as a carrier stop event.
				b.Logger.Info("idle timeout, closing call")
				if sess != nil {
					sess.BeginClose("idle_timeout")
				}
				return
			case errors.Is(err, telephony.ErrBadFrame):
				metrics.DroppedFrames.WithLabelValues("bad_frame").Inc()
				b.Logger.Warn("dropping undecodable frame", "error", err)
				continue
			case sess != nil && sess.State() != StateActive:
				// Transport errors during teardown are expected.
				return
			default:
				b.Logger.Warn("telephony read failed", "error", err)
				return
			}
		}

		switch ev.Type {
		case telephony.EventStart:
			if sess != nil {
				b.Logger.Warn("duplicate start event on stream", "session_id", sess.ID())
				continue
			}
			sess = b.startSession(ctx, conn, ev.Start)
			if sess == nil {
				return
			}

		case telephony.EventMedia:
			if sess == nil {
				metrics.DroppedFrames.WithLabelValues("media_before_start").Inc()
				continue
			}
			sess.ForwardMedia(ev.Media.Payload)

		case telephony.EventDTMF:
			if sess == nil {
				continue
			}
			sess.ForwardDTMF(ev.DTMF.Digit)

		case telephony.EventStop:
			reason := "carrier_stop"
			if ev.Stop != nil && ev.Stop.Reason != "" {
				reason = ev.Stop.Reason
			}
			if sess != nil {
				sess.BeginClose(reason)
			}
			return

		default:
			b.Logger.Debug("ignoring unknown event", "event", ev.RawType)
		}
	}
}

// startSession resolves the tenant and agent, opens the runtime handle,
// registers the session, and starts its pumps. On handle failure the
// carrier gets an error event and nil is returned; the session was never
// registered and the connection is unusable for this call.
func (b *Bridge) startSession(ctx context.Context, conn Transport, start *telephony.StartEvent) *Session {
	sessionID := uuid.NewString()
	params := start.Parameters
	externalID := telephony.ResolveExternalID(params, start.StreamID, sessionID)
	domain := params[telephony.ParamAccountDomain]

	logger := b.Logger.With("session_id", sessionID, "external_id", externalID)

	cfg := b.agentConfig(ctx, domain, logger)

	handle, err := b.Runtime.NewHandle(ctx, cfg)
	if err != nil {
		logger.Error("agent session setup failed", "error", err)
		_ = conn.SendError("agent unavailable")
		_ = conn.Close()
		return nil
	}

	sess := &Session{
		id:           sessionID,
		externalID:   externalID,
		tenantDomain: domain,
		streamID:     start.StreamID,
		createdAt:    time.Now(),
		conn:         conn,
		handle:       handle,
		recorder:     b.Recorder,
		registry:     b.Registry,
		logger:       logger,
		grace:        b.GracePeriod,
		inbound:      make(chan inboundItem, 256),
		closing:      make(chan struct{}),
		pumpsDone:    make(chan struct{}),
		closed:       make(chan struct{}),
	}
	if sess.grace <= 0 {
		sess.grace = 5 * time.Second
	}

	if b.Recorder != nil {
		b.Recorder.CreateInteraction(externalID, domain, cfg.AgentID, params[telephony.ParamCallerID])
	}

	b.Registry.add(sess)
	sess.mu.Lock()
	sess.state = StateActive
	sess.mu.Unlock()
	go sess.run(ctx)

	metrics.SessionsStarted.Inc()
	logger.Info("session started",
		"tenant_domain", domain,
		"model", cfg.Model,
		"voice", cfg.VoiceName,
	)
	return sess
}

// agentConfig looks up the tenant's active agent. Lookup failures or a
// missing row fall back to the default agent; a slow database must not
// delay call setup past the lookup timeout.
func (b *Bridge) agentConfig(ctx context.Context, domain string, logger *slog.Logger) agent.Config {
	cfg := b.Defaults
	if cfg.Model == "" {
		cfg.Model = agent.DefaultModel
	}
	if cfg.VoiceName == "" {
		cfg.VoiceName = agent.DefaultVoice
	}
	if b.Store == nil || domain == "" {
		return cfg
	}
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	found, err := b.Store.ActiveAgentForDomain(lookupCtx, domain)
	if err != nil {
		logger.Warn("agent lookup failed, using defaults", "tenant_domain", domain, "error", err)
		return cfg
	}
	if found == nil {
		return cfg
	}
	cfg.AgentID = found.AgentID
	if found.Model != "" {
		cfg.Model = found.Model
	}
	if found.VoiceName != "" {
		cfg.VoiceName = found.VoiceName
	}
	cfg.SystemPrompt = found.SystemPrompt
	return cfg
}
