package audio

import "math"

// Exact-factor sample-rate conversion between the 8 kHz telephony leg and
// the agent runtime's 16 kHz input / 24 kHz output. Both directions use a
// single windowed-sinc FIR with group delay compensated so output lengths
// are exact: 2N samples up, M/3 samples down.

const (
	up2TapCount   = 47
	down3TapCount = 45
)

var (
	up2Taps   [up2TapCount]float64
	up2Center = (up2TapCount - 1) / 2

	down3Taps   [down3TapCount]float64
	down3Center = (down3TapCount - 1) / 2
)

func init() {
	// Interpolation by 2: cutoff at the pre-upsampling Nyquist (pi/2),
	// gain 2 to compensate zero stuffing. Each polyphase branch is
	// normalized to unit DC gain.
	var phaseSum [2]float64
	for i := range up2Taps {
		t := float64(i-up2Center) / 2
		up2Taps[i] = sinc(t) * hamming(i, up2TapCount)
		phaseSum[i%2] += up2Taps[i]
	}
	for i := range up2Taps {
		up2Taps[i] /= phaseSum[i%2]
	}

	// Decimation by 3: cutoff at one third of the input Nyquist (pi/3),
	// unit DC gain.
	var sum float64
	for i := range down3Taps {
		t := float64(i-down3Center) / 3
		down3Taps[i] = sinc(t) * hamming(i, down3TapCount) / 3
		sum += down3Taps[i]
	}
	for i := range down3Taps {
		down3Taps[i] /= sum
	}
}

func sinc(t float64) float64 {
	if t == 0 {
		return 1
	}
	return math.Sin(math.Pi*t) / (math.Pi * t)
}

func hamming(i, n int) float64 {
	return 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

func clip16(v float64) int16 {
	r := math.Round(v)
	if r > 32767 {
		return 32767
	}
	if r < -32768 {
		return -32768
	}
	return int16(r)
}

// upsample2 doubles the sample rate. len(out) == 2*len(in).
func upsample2(in []int16) []int16 {
	n := len(in)
	out := make([]int16, 2*n)
	for j := range out {
		// Convolution over the zero-stuffed input: only taps with the
		// same parity as the output index touch real samples.
		base := j + up2Center
		var acc float64
		for i := base & 1; i < up2TapCount; i += 2 {
			xi := (base - i) / 2
			if xi >= 0 && xi < n {
				acc += up2Taps[i] * float64(in[xi])
			}
		}
		out[j] = clip16(acc)
	}
	return out
}

// downsample3 reduces the sample rate by 3. len(out) == len(in)/3.
func downsample3(in []int16) []int16 {
	n := len(in) / 3
	out := make([]int16, n)
	for m := range out {
		base := 3*m + down3Center
		var acc float64
		for i := 0; i < down3TapCount; i++ {
			xi := base - i
			if xi >= 0 && xi < len(in) {
				acc += down3Taps[i] * float64(in[xi])
			}
		}
		out[m] = clip16(acc)
	}
	return out
}
