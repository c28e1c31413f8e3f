package telephony

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeStartWithParameterList(t *testing.T) {
	raw := `{"event":"start","start":{"streamId":"abc","customParameters":[
		{"name":"AccountDomain","value":"acme.example.com"},
		{"name":"OrigCallID","value":"X1"},
		{"name":"NmsAni","value":"15551230000"}]}}`

	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventStart {
		t.Fatalf("type=%q, want start", ev.Type)
	}
	if ev.Start.StreamID != "abc" {
		t.Fatalf("streamId=%q", ev.Start.StreamID)
	}
	if got := ev.Start.Parameters[ParamOrigCallID]; got != "X1" {
		t.Fatalf("OrigCallID=%q, want X1", got)
	}
	if got := ev.Start.Parameters[ParamAccountDomain]; got != "acme.example.com" {
		t.Fatalf("AccountDomain=%q", got)
	}
}

func TestDecodeStartWithFlatParameters(t *testing.T) {
	raw := `{"event":"start","start":{"streamId":"s9","parameters":{"TermCallID":"T7","NmsDnis":"8005551212"}}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := ev.Start.Parameters[ParamTermCallID]; got != "T7" {
		t.Fatalf("TermCallID=%q, want T7", got)
	}
}

func TestDecodeStartTopLevelParameters(t *testing.T) {
	raw := `{"event":"start","streamId":"top","customParameters":[{"name":"OrigCallID","value":"O2"}]}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Start.StreamID != "top" {
		t.Fatalf("streamId=%q, want top", ev.Start.StreamID)
	}
	if got := ev.Start.Parameters[ParamOrigCallID]; got != "O2" {
		t.Fatalf("OrigCallID=%q", got)
	}
}

func TestDecodeMedia(t *testing.T) {
	raw := `{"event":"media","media":{"payload":"//8A","encoding":"ulaw"}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventMedia {
		t.Fatalf("type=%q", ev.Type)
	}
	if !bytes.Equal(ev.Media.Payload, []byte{0xFF, 0xFF, 0x00}) {
		t.Fatalf("payload=%v", ev.Media.Payload)
	}
	if ev.Media.Encoding != "ulaw" {
		t.Fatalf("encoding=%q", ev.Media.Encoding)
	}
}

func TestDecodeMediaBadBase64(t *testing.T) {
	raw := `{"event":"media","media":{"payload":"!!not-base64!!","encoding":"ulaw"}}`
	_, err := DecodeEvent([]byte(raw))
	if !errors.Is(err, ErrBadFrame) {
		t.Fatalf("want ErrBadFrame for malformed payload, got %v", err)
	}
}

func TestDecodeMediaEmptyPayload(t *testing.T) {
	raw := `{"event":"media","media":{"payload":"","encoding":"ulaw"}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ev.Media.Payload) != 0 {
		t.Fatalf("payload should be empty")
	}
}

func TestDecodeStopReasonShapes(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{`{"event":"stop","reason":"hangup"}`, "hangup"},
		{`{"event":"stop","stop":{"reason":"carrier_drop"}}`, "carrier_drop"},
		{`{"event":"stop"}`, ""},
	}
	for _, tc := range cases {
		ev, err := DecodeEvent([]byte(tc.raw))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if ev.Type != EventStop || ev.Stop.Reason != tc.want {
			t.Fatalf("%s: got type=%q reason=%q", tc.raw, ev.Type, ev.Stop.Reason)
		}
	}
}

func TestDecodeDTMF(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"dtmf","dtmf":{"digit":"5"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventDTMF || ev.DTMF.Digit != "5" {
		t.Fatalf("got type=%q digit=%q", ev.Type, ev.DTMF.Digit)
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"mark","mark":{"name":"x"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventUnknown || ev.RawType != "mark" {
		t.Fatalf("got type=%q raw=%q", ev.Type, ev.RawType)
	}
}

func TestResolveExternalID(t *testing.T) {
	cases := []struct {
		name     string
		params   map[string]string
		streamID string
		want     string
	}{
		{"orig wins", map[string]string{"OrigCallID": "O", "TermCallID": "T"}, "s", "O"},
		{"term fallback", map[string]string{"TermCallID": "T"}, "s", "T"},
		{"stream fallback", map[string]string{}, "s", "s"},
		{"session fallback", map[string]string{}, "", "sess-1"},
		{"blank orig skipped", map[string]string{"OrigCallID": "  ", "TermCallID": "T"}, "s", "T"},
	}
	for _, tc := range cases {
		if got := ResolveExternalID(tc.params, tc.streamID, "sess-1"); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
