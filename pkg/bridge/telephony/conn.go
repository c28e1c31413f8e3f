package telephony

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrIdleTimeout reports that no event arrived within the idle window.
// Callers treat it as an implicit stop, not a transport failure.
var ErrIdleTimeout = errors.New("telephony: idle read timeout")

// Conn wraps the carrier-facing websocket. Reads happen from a single
// loop; writes may come from any pump, so they are serialized behind a
// mutex.
type Conn struct {
	ws          *websocket.Conn
	idleTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, idleTimeout time.Duration) *Conn {
	return &Conn{ws: ws, idleTimeout: idleTimeout}
}

// ReadEvent blocks for the next inbound event, bounded by the idle
// timeout. Decode failures for a single frame come back as an error with
// the connection still usable.
func (c *Conn) ReadEvent() (CallEvent, error) {
	if c.idleTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return CallEvent{}, ErrIdleTimeout
		}
		return CallEvent{}, fmt.Errorf("telephony read: %w", err)
	}
	return DecodeEvent(data)
}

type outboundMedia struct {
	Payload  string `json:"payload"`
	Encoding string `json:"encoding"`
}

// SendMedia ships one mu-law frame to the carrier.
func (c *Conn) SendMedia(ulaw []byte) error {
	if len(ulaw) == 0 {
		return nil
	}
	return c.writeJSON(map[string]any{
		"event": "media",
		"media": outboundMedia{
			Payload:  base64.StdEncoding.EncodeToString(ulaw),
			Encoding: "ulaw",
		},
	})
}

// SendClear tells the carrier to flush its playback buffer (barge-in).
func (c *Conn) SendClear(streamID string) error {
	return c.writeJSON(map[string]any{"event": "clear", "streamId": streamID})
}

// SendError reports a session-establishment failure to the carrier.
func (c *Conn) SendError(message string) error {
	return c.writeJSON(map[string]any{"event": "error", "error": message})
}

// SendStop asks the carrier to end the stream.
func (c *Conn) SendStop() error {
	return c.writeJSON(map[string]any{"event": "stop"})
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// Close closes the websocket after a best-effort close frame. Safe to
// call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	return nil
}
