// Package agent defines the bridge's view of the conversational AI
// runtime: an opaque bidirectional handle with an audio/text input sink
// and a stream of typed output units.
package agent

import "context"

// Config selects the agent personality for one call. It is resolved per
// tenant domain; zero values fall back to process-wide defaults.
type Config struct {
	AgentID      int64
	Model        string
	VoiceName    string
	SystemPrompt string
}

// OutputKind discriminates the units an agent produces. The wire shape of
// the runtime is decoded exactly once, at the runtime boundary, into this
// variant type.
type OutputKind int

const (
	// OutputAudio carries 16-bit PCM at 24 kHz.
	OutputAudio OutputKind = iota
	// OutputText carries a transcript fragment; Final marks the fragment
	// that completes an utterance.
	OutputText
	// OutputInterrupted signals barge-in: queued playback toward the
	// caller must be flushed.
	OutputInterrupted
	// OutputTurnComplete marks the end of an agent turn. Informational.
	OutputTurnComplete
)

// Output is one unit from the runtime's output stream.
type Output struct {
	Kind  OutputKind
	Audio []byte
	Text  string
	Role  string
	Final bool
}

// Handle is a live bidirectional stream to the runtime for one call. It
// is exclusively owned by its session.
type Handle interface {
	// SendAudio pushes 16-bit PCM at 16 kHz into the runtime.
	SendAudio(pcm []byte) error
	// SendText pushes a user text turn (synthetic DTMF input, call
	// notifications) into the runtime.
	SendText(text string) error
	// Outputs yields the runtime's output units in production order.
	// The channel closes when the runtime ends the stream.
	Outputs() <-chan Output
	// Close releases the handle. Idempotent.
	Close() error
}

// Runtime creates live handles.
type Runtime interface {
	NewHandle(ctx context.Context, cfg Config) (Handle, error)
}
