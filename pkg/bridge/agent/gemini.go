package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

const (
	inputMIMEType = "audio/pcm;rate=16000"

	// DefaultModel is used when the tenant lookup yields no agent row.
	DefaultModel = "gemini-live-2.5-flash-preview-native-audio"
	// DefaultVoice is the prebuilt voice used when the tenant does not
	// pin one.
	DefaultVoice = "Sulafat"

	defaultSystemPrompt = "You are a friendly phone assistant. Keep responses brief and conversational; this is a live call."
)

// GeminiRuntime produces live handles backed by the Gemini Live API.
type GeminiRuntime struct {
	client *genai.Client
	logger *slog.Logger
}

func NewGeminiRuntime(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiRuntime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiRuntime{client: client, logger: logger}, nil
}

func (r *GeminiRuntime) NewHandle(ctx context.Context, cfg Config) (Handle, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	voice := cfg.VoiceName
	if voice == "" {
		voice = DefaultVoice
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	session, err := r.client.Live.Connect(ctx, model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
		SystemInstruction:        genai.NewContentFromText(prompt, genai.RoleUser),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	})
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	h := &geminiHandle{
		session: session,
		logger:  r.logger,
		outputs: make(chan Output, 64),
		done:    make(chan struct{}),
	}
	go h.receiveLoop()
	return h, nil
}

type geminiHandle struct {
	session *genai.Session
	logger  *slog.Logger

	outputs chan Output
	done    chan struct{}

	closeOnce sync.Once
}

func (h *geminiHandle) SendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return h.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: pcm, MIMEType: inputMIMEType},
	})
}

func (h *geminiHandle) SendText(text string) error {
	return h.session.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
	})
}

func (h *geminiHandle) Outputs() <-chan Output {
	return h.outputs
}

func (h *geminiHandle) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		_ = h.session.Close()
	})
	return nil
}

// receiveLoop decodes the runtime's wire messages into Output units,
// exactly once, in production order. The outputs channel closes when the
// stream ends for any reason.
func (h *geminiHandle) receiveLoop() {
	defer close(h.outputs)
	for {
		msg, err := h.session.Receive()
		if err != nil {
			select {
			case <-h.done:
			default:
				h.logger.Debug("agent output stream ended", "error", err)
			}
			return
		}
		sc := msg.ServerContent
		if sc == nil {
			continue
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					if !h.emit(Output{Kind: OutputAudio, Audio: part.InlineData.Data}) {
						return
					}
				}
				if part.Text != "" {
					if !h.emit(Output{Kind: OutputText, Text: part.Text, Role: "assistant"}) {
						return
					}
				}
			}
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			if !h.emit(Output{
				Kind:  OutputText,
				Text:  sc.InputTranscription.Text,
				Role:  "user",
				Final: sc.InputTranscription.Finished,
			}) {
				return
			}
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			if !h.emit(Output{
				Kind:  OutputText,
				Text:  sc.OutputTranscription.Text,
				Role:  "assistant",
				Final: sc.OutputTranscription.Finished,
			}) {
				return
			}
		}
		if sc.Interrupted {
			if !h.emit(Output{Kind: OutputInterrupted}) {
				return
			}
		}
		if sc.TurnComplete {
			if !h.emit(Output{Kind: OutputTurnComplete}) {
				return
			}
		}
	}
}

func (h *geminiHandle) emit(out Output) bool {
	select {
	case h.outputs <- out:
		return true
	case <-h.done:
		return false
	}
}
