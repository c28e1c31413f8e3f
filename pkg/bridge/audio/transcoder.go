// Package audio converts between the telephony carrier's 8 kHz mu-law
// stream and the linear PCM the agent runtime consumes and produces.
//
// All lookup tables are built at package init and never mutated, so both
// directions are safe to call concurrently from any number of sessions.
package audio

import "encoding/binary"

// Sample rates at the two ends of the bridge.
const (
	TelephonyRate   = 8000
	AgentInputRate  = 16000
	AgentOutputRate = 24000
)

// DecodeInbound converts 8 kHz mu-law bytes from the telephony leg into
// 16-bit little-endian PCM at 16 kHz. One input byte yields exactly two
// output samples. Empty input yields an empty slice.
func DecodeInbound(ulaw []byte) []byte {
	if len(ulaw) == 0 {
		return nil
	}
	pcm := upsample2(DecodeULaw(ulaw))
	out := make([]byte, 2*len(pcm))
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// EncodeOutbound converts 16-bit little-endian PCM at 24 kHz from the
// agent runtime into 8 kHz mu-law bytes. Three input samples yield one
// output byte. Input that is empty or not a whole number of samples
// yields an empty slice; a bad frame is a data-quality problem for the
// caller to drop, not a transport failure.
func EncodeOutbound(pcm []byte) []byte {
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return nil
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return EncodeULaw(downsample3(samples))
}
