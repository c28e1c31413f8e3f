// Package telephony frames and deframes the JSON event protocol spoken by
// the carrier's media stream: one event per websocket text message, with
// start / media / stop / dtmf inbound and media / clear / error / stop
// outbound.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadFrame marks a single undecodable inbound frame. The connection
// stays usable; callers drop the frame and keep reading.
var ErrBadFrame = errors.New("telephony: bad frame")

type EventType string

const (
	EventStart   EventType = "start"
	EventMedia   EventType = "media"
	EventStop    EventType = "stop"
	EventDTMF    EventType = "dtmf"
	EventUnknown EventType = "unknown"
)

// StartEvent carries the call-correlation parameters supplied by the
// carrier when the media stream opens.
type StartEvent struct {
	StreamID   string
	Parameters map[string]string
}

// MediaEvent carries one frame of mu-law audio, already base64-decoded.
type MediaEvent struct {
	Payload  []byte
	Encoding string
}

type StopEvent struct {
	Reason string
}

type DTMFEvent struct {
	Digit string
}

// CallEvent is the decoded form of one inbound wire message. Exactly one
// of the pointer fields matching Type is set; unknown event names keep
// the raw name in RawType so callers can log them.
type CallEvent struct {
	Type    EventType
	RawType string

	Start *StartEvent
	Media *MediaEvent
	Stop  *StopEvent
	DTMF  *DTMFEvent
}

type wireMessage struct {
	Event string `json:"event"`
	Start *struct {
		StreamID         string          `json:"streamId"`
		CustomParameters json.RawMessage `json:"customParameters"`
		Parameters       json.RawMessage `json:"parameters"`
	} `json:"start"`
	Media *struct {
		Payload  string `json:"payload"`
		Encoding string `json:"encoding"`
	} `json:"media"`
	Stop *struct {
		Reason string `json:"reason"`
	} `json:"stop"`
	DTMF *struct {
		Digit string `json:"digit"`
	} `json:"dtmf"`

	// Some carrier firmwares put these at the top level instead of
	// nesting them under the event object.
	StreamID         string          `json:"streamId"`
	Reason           string          `json:"reason"`
	CustomParameters json.RawMessage `json:"customParameters"`
	Parameters       json.RawMessage `json:"parameters"`
}

// DecodeEvent parses one inbound wire message. A malformed media payload
// is a data-quality error for the caller to drop; it never tears the
// stream down.
func DecodeEvent(data []byte) (CallEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return CallEvent{}, fmt.Errorf("%w: decode event: %v", ErrBadFrame, err)
	}

	switch msg.Event {
	case "start":
		ev := StartEvent{Parameters: map[string]string{}}
		rawParams := []json.RawMessage{msg.CustomParameters, msg.Parameters}
		if msg.Start != nil {
			ev.StreamID = msg.Start.StreamID
			rawParams = []json.RawMessage{msg.Start.CustomParameters, msg.Start.Parameters, msg.CustomParameters, msg.Parameters}
		}
		if ev.StreamID == "" {
			ev.StreamID = msg.StreamID
		}
		for _, raw := range rawParams {
			if len(raw) == 0 {
				continue
			}
			params, err := decodeParameters(raw)
			if err != nil {
				return CallEvent{}, fmt.Errorf("%w: decode start parameters: %v", ErrBadFrame, err)
			}
			if len(params) > 0 {
				ev.Parameters = params
				break
			}
		}
		return CallEvent{Type: EventStart, Start: &ev}, nil

	case "media":
		if msg.Media == nil || strings.TrimSpace(msg.Media.Payload) == "" {
			return CallEvent{Type: EventMedia, Media: &MediaEvent{}}, nil
		}
		payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(msg.Media.Payload))
		if err != nil {
			return CallEvent{}, fmt.Errorf("%w: decode media payload: %v", ErrBadFrame, err)
		}
		return CallEvent{Type: EventMedia, Media: &MediaEvent{Payload: payload, Encoding: msg.Media.Encoding}}, nil

	case "stop":
		reason := msg.Reason
		if reason == "" && msg.Stop != nil {
			reason = msg.Stop.Reason
		}
		return CallEvent{Type: EventStop, Stop: &StopEvent{Reason: reason}}, nil

	case "dtmf":
		digit := ""
		if msg.DTMF != nil {
			digit = msg.DTMF.Digit
		}
		return CallEvent{Type: EventDTMF, DTMF: &DTMFEvent{Digit: digit}}, nil

	default:
		return CallEvent{Type: EventUnknown, RawType: msg.Event}, nil
	}
}

// decodeParameters accepts either a list of {name,value} objects or a
// flat string map; the carrier has shipped both shapes.
func decodeParameters(raw json.RawMessage) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	out := map[string]string{}
	if strings.HasPrefix(trimmed, "[") {
		var pairs []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, err
		}
		for _, p := range pairs {
			if p.Name != "" {
				out[p.Name] = p.Value
			}
		}
		return out, nil
	}

	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	for k, v := range flat {
		out[k] = v
	}
	return out, nil
}

// Well-known start/stop parameter names on the carrier side.
const (
	ParamAccountDomain = "AccountDomain"
	ParamCalledNumber  = "NmsDnis"
	ParamCallerID      = "NmsAni"
	ParamOrigCallID    = "OrigCallID"
	ParamTermCallID    = "TermCallID"
)

// ResolveExternalID picks the call-correlation id for a session from the
// start parameters, in fixed priority order: originating call id, then
// terminating call id, then the stream id, then the bridge's own session
// id. The result stays stable for the life of the call.
func ResolveExternalID(params map[string]string, streamID, sessionID string) string {
	for _, candidate := range []string{
		params[ParamOrigCallID],
		params[ParamTermCallID],
		streamID,
		sessionID,
	} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return sessionID
}
