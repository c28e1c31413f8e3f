// Package session owns one call's lifecycle: the state machine, the two
// duplex pumps between telephony and the agent runtime, the registry of
// live calls, and the orchestrator that wires a new call together.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
	"github.com/netlinkvoice/connectai/pkg/bridge/audio"
	"github.com/netlinkvoice/connectai/pkg/bridge/metrics"
	"github.com/netlinkvoice/connectai/pkg/bridge/store"
	"github.com/netlinkvoice/connectai/pkg/bridge/telephony"
)

// State is the session lifecycle phase. The only transitions are
// Initializing -> Active -> Closing -> Closed, plus Initializing ->
// Closed when the agent handle cannot be acquired.
type State int32

const (
	StateInitializing State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the telephony-facing side of a call. *telephony.Conn is
// the production implementation.
type Transport interface {
	ReadEvent() (telephony.CallEvent, error)
	SendMedia(ulaw []byte) error
	SendClear(streamID string) error
	SendError(message string) error
	Close() error
}

var _ Transport = (*telephony.Conn)(nil)

type inboundItem struct {
	media []byte // mu-law frame from telephony
	text  string // synthetic text input (DTMF)
}

// Session is one live call.
type Session struct {
	id           string
	externalID   string
	tenantDomain string
	streamID     string
	createdAt    time.Time

	conn     Transport
	handle   agent.Handle
	recorder *store.Recorder
	registry *Registry
	logger   *slog.Logger

	grace time.Duration

	mu     sync.Mutex
	state  State
	reason string

	inbound chan inboundItem

	closing   chan struct{} // signaled once by beginClose
	pumpsDone chan struct{} // closed when both pumps return
	closed    chan struct{} // closed when teardown completes

	closeOnce sync.Once
}

// Summary is the introspection view of a session.
type Summary struct {
	SessionID    string    `json:"session_id"`
	ExternalID   string    `json:"external_id,omitempty"`
	TenantDomain string    `json:"tenant_domain,omitempty"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Session) ID() string         { return s.id }
func (s *Session) ExternalID() string { return s.externalID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		SessionID:    s.id,
		ExternalID:   s.externalID,
		TenantDomain: s.tenantDomain,
		State:        s.state.String(),
		CreatedAt:    s.createdAt,
	}
}

// ForwardMedia hands one inbound mu-law frame to the inbound pump. Frames
// arriving outside the Active state are dropped silently; a full queue
// drops the frame rather than stalling the read loop.
func (s *Session) ForwardMedia(payload []byte) {
	if len(payload) == 0 || s.State() != StateActive {
		return
	}
	select {
	case s.inbound <- inboundItem{media: payload}:
	default:
		metrics.DroppedFrames.WithLabelValues("inbound_queue_full").Inc()
		s.logger.Warn("inbound queue full, dropping frame", "session_id", s.id)
	}
}

// ForwardDTMF converts a key press into synthetic text for the agent.
func (s *Session) ForwardDTMF(digit string) {
	if digit == "" || s.State() != StateActive {
		return
	}
	select {
	case s.inbound <- inboundItem{text: "User pressed key: " + digit}:
	default:
		metrics.DroppedFrames.WithLabelValues("inbound_queue_full").Inc()
	}
}

// BeginClose starts teardown with the given reason. Idempotent: only the
// first caller's reason is recorded. It returns immediately; Closed()
// reports completion.
func (s *Session) BeginClose(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.state == StateActive || s.state == StateInitializing {
			s.state = StateClosing
		}
		s.reason = reason
		s.mu.Unlock()
		close(s.closing)
	})
}

// Closed is closed once teardown has fully completed and the session has
// left the registry.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// run supervises the session: it starts both pumps under one cancellation
// scope, waits for a close request, then cancels the scope, waits out the
// grace period, releases resources, and deregisters. Scope completion is
// the sole trigger for registry removal.
func (s *Session) run(ctx context.Context) {
	pumpCtx, cancel := context.WithCancel(ctx)
	g, pumpCtx := errgroup.WithContext(pumpCtx)
	g.Go(func() error { return s.inboundPump(pumpCtx) })
	g.Go(func() error { return s.outboundPump(pumpCtx) })
	go func() {
		_ = g.Wait()
		close(s.pumpsDone)
	}()

	select {
	case <-s.closing:
	case <-ctx.Done():
		s.BeginClose("server_shutdown")
	case <-s.pumpsDone:
		// A pump ended on its own (agent stream ended, transport gone).
		s.BeginClose("pump_exit")
	}

	s.mu.Lock()
	s.state = StateClosing
	reason := s.reason
	s.mu.Unlock()

	cancel()
	select {
	case <-s.pumpsDone:
	case <-time.After(s.grace):
		// A stuck pump is abandoned; teardown must not block on it.
		s.logger.Warn("pump did not observe cancellation within grace period", "session_id", s.id)
	}

	_ = s.handle.Close()
	_ = s.conn.Close()

	if s.recorder != nil {
		s.recorder.EndInteraction(s.externalID, reason)
	}

	s.registry.remove(s)
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	metrics.SessionsClosed.WithLabelValues(reason).Inc()
	s.logger.Info("session closed", "session_id", s.id, "external_id", s.externalID, "reason", reason)
	close(s.closed)
}

// inboundPump relays caller audio and synthetic text into the agent
// runtime, in arrival order.
func (s *Session) inboundPump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-s.inbound:
			if s.State() != StateActive {
				continue
			}
			if item.text != "" {
				if err := s.handle.SendText(item.text); err != nil {
					s.logger.Warn("send text to agent failed", "session_id", s.id, "error", err)
				}
				continue
			}
			pcm := audio.DecodeInbound(item.media)
			if len(pcm) == 0 {
				metrics.DroppedFrames.WithLabelValues("decode_failed").Inc()
				continue
			}
			if err := s.handle.SendAudio(pcm); err != nil {
				s.logger.Warn("send audio to agent failed", "session_id", s.id, "error", err)
				s.BeginClose("agent_handle_unusable")
				return nil
			}
			metrics.InboundFrames.Inc()
		}
	}
}

// outboundPump relays agent output units back toward telephony, in
// production order. Units arriving while the session is not Active are
// dropped silently; the agent runtime may keep producing briefly after
// teardown begins.
func (s *Session) outboundPump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case out, ok := <-s.handle.Outputs():
			if !ok {
				s.BeginClose("agent_stream_ended")
				return nil
			}
			if s.State() != StateActive {
				continue
			}
			switch out.Kind {
			case agent.OutputAudio:
				ulaw := audio.EncodeOutbound(out.Audio)
				if len(ulaw) == 0 {
					metrics.DroppedFrames.WithLabelValues("encode_failed").Inc()
					continue
				}
				if err := s.conn.SendMedia(ulaw); err != nil {
					s.logger.Warn("send media to telephony failed", "session_id", s.id, "error", err)
					s.BeginClose("transport_error")
					return nil
				}
				metrics.OutboundFrames.Inc()

			case agent.OutputText:
				if !out.Final || out.Text == "" {
					continue
				}
				role := out.Role
				if role == "" {
					role = "assistant"
				}
				if s.recorder != nil {
					s.recorder.InsertMessage(s.externalID, role, out.Text)
				}

			case agent.OutputInterrupted:
				metrics.Interrupts.Inc()
				if err := s.conn.SendClear(s.streamID); err != nil {
					s.logger.Warn("send clear to telephony failed", "session_id", s.id, "error", err)
				}

			case agent.OutputTurnComplete:
				s.logger.Debug("agent turn complete", "session_id", s.id)
			}
		}
	}
}
