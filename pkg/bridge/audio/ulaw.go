package audio

// G.711 mu-law companding. The byte layout on the wire is the telephony
// carrier's format, so both directions must be byte-exact: bias addition,
// 8-segment exponent search, 4-bit mantissa, one's-complement output.

const (
	ulawBias = 132
	ulawClip = 32635
)

var (
	ulawDecodeTable [256]int16
	ulawEncodeTable [65536]byte
)

func init() {
	for i := 0; i < 256; i++ {
		ulawDecodeTable[i] = ulawToLinear(byte(i))
	}
	for i := 0; i < 65536; i++ {
		ulawEncodeTable[i] = linearToUlaw(i - 32768)
	}
}

func linearToUlaw(sample int) byte {
	sign := (sample >> 8) & 0x80
	if sign != 0 {
		sample = -sample
	}
	if sample > ulawClip {
		sample = ulawClip
	}
	sample += ulawBias

	exponent := 7
	for mask := 0x4000; sample&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (sample >> uint(exponent+3)) & 0x0F

	return byte(^(sign | exponent<<4 | mantissa))
}

func ulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := ((int(mantissa) << 3) + ulawBias) << uint(exponent)
	sample -= ulawBias
	if sign != 0 {
		sample = -sample
	}
	return int16(sample)
}

// DecodeULaw expands mu-law bytes into linear PCM16 samples.
func DecodeULaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = ulawDecodeTable[b]
	}
	return out
}

// EncodeULaw compands linear PCM16 samples into mu-law bytes.
func EncodeULaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = ulawEncodeTable[int(s)+32768]
	}
	return out
}
