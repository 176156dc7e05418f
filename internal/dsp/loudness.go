package dsp

import "math"

// kWeighting builds the two cascaded biquad sections ITU-R BS.1770
// prescribes for loudness measurement: a high-shelf "head" pre-filter
// followed by an RLB high-pass. Coefficients are the standard BS.1770-4
// analog-prototype values, independent of content.
func kWeighting(sampleRate float64) (pre, rlb *Filter) {
	const (
		preFreq = 1681.974450955533
		preGain = 3.999843853973347
		preQ    = 0.7071752369554196

		rlbFreq = 38.13547087602444
		rlbQ    = 0.5003270373238773
	)

	k := math.Tan(math.Pi * preFreq / sampleRate)
	vh := math.Pow(10, preGain/20)
	vb := math.Pow(vh, 0.4996667741545416)
	gain := 1 + k/preQ + k*k

	preB0 := (vh + vb*k/preQ + k*k) / gain
	preB1 := 2 * (k*k - vh) / gain
	preB2 := (vh - vb*k/preQ + k*k) / gain
	preA1 := 2 * (k*k - 1) / gain
	preA2 := (1 - k/preQ + k*k) / gain
	pre = NewFilter(HighShelf, 1, preA1, preA2, preB0, preB1, preB2, 1)

	k = math.Tan(math.Pi * rlbFreq / sampleRate)
	gain = 1 + k/rlbQ + k*k

	rlbB0 := 1 / gain
	rlbB1 := -2 / gain
	rlbB2 := 1 / gain
	rlbA1 := 2 * (k*k - 1) / gain
	rlbA2 := (1 - k/rlbQ + k*k) / gain
	rlb = NewFilter(HighPass, 1, rlbA1, rlbA2, rlbB0, rlbB1, rlbB2, 1)

	return pre, rlb
}

// LUFSMeter accumulates K-weighted, gated integrated loudness across a
// stream of multi-channel frames, per ITU-R BS.1770-4 / EBU R128.
type LUFSMeter struct {
	sampleRate  float64
	numChannels int

	pre, rlb []*Filter

	momentarySize int
	hopSize       int
	buf           []float64
	pos           int
	sum           float64
	filled        int
	sampleCount   int

	momentaryPowers []float64
}

// NewLUFSMeter creates a meter for the given sample rate and channel
// count (1 = mono, 2 = stereo).
func NewLUFSMeter(sampleRate float64, numChannels int) *LUFSMeter {
	if numChannels < 1 {
		numChannels = 1
	}
	m := &LUFSMeter{
		sampleRate:    sampleRate,
		numChannels:   numChannels,
		pre:           make([]*Filter, numChannels),
		rlb:           make([]*Filter, numChannels),
		momentarySize: int(sampleRate * 0.4),
		hopSize:       int(sampleRate * 0.1),
	}
	for ch := 0; ch < numChannels; ch++ {
		m.pre[ch], m.rlb[ch] = kWeighting(sampleRate)
	}
	m.buf = make([]float64, m.momentarySize)
	return m
}

// channelWeight returns the ITU-R BS.1770 surround channel weight; for
// mono/stereo content it is always 1.0.
func channelWeight(channel, numChannels int) float64 {
	if numChannels <= 2 {
		return 1.0
	}
	if channel >= 3 && channel <= 4 {
		return 1.41
	}
	return 1.0
}

// Write feeds one frame (one sample per channel) through the meter.
func (m *LUFSMeter) Write(frame []float64) {
	var power float64
	for ch := 0; ch < m.numChannels && ch < len(frame); ch++ {
		sample := []float64{frame[ch]}
		m.pre[ch].ApplyBatch(sample)
		m.rlb[ch].ApplyBatch(sample)
		filtered := sample[0]
		power += channelWeight(ch, m.numChannels) * filtered * filtered
	}

	old := m.buf[m.pos]
	m.buf[m.pos] = power
	m.sum = m.sum - old + power
	m.pos = (m.pos + 1) % m.momentarySize
	if m.filled < m.momentarySize {
		m.filled++
	}

	m.sampleCount++
	if m.sampleCount%m.hopSize == 0 && m.filled == m.momentarySize {
		m.momentaryPowers = append(m.momentaryPowers, m.sum/float64(m.momentarySize))
	}
}

// WriteInterleaved pushes an interleaved multi-channel buffer through the
// meter frame by frame.
func (m *LUFSMeter) WriteInterleaved(interleaved []float64) {
	frame := make([]float64, m.numChannels)
	for i := 0; i+m.numChannels <= len(interleaved); i += m.numChannels {
		copy(frame, interleaved[i:i+m.numChannels])
		m.Write(frame)
	}
}

// Integrated computes the gated integrated loudness in LUFS from every
// 400ms momentary window observed so far, applying BS.1770's two-stage
// gating (absolute -70 LUFS, then relative -10 LU below the mean of the
// windows that passed the absolute gate).
func (m *LUFSMeter) Integrated() float64 {
	return gatedLoudness(m.momentaryPowers)
}

func powerToLUFS(power float64) float64 {
	if power <= 0 {
		return -120
	}
	return -0.691 + 10*math.Log10(power)
}

func gatedLoudness(powers []float64) float64 {
	if len(powers) == 0 {
		return -120
	}

	var sum float64
	var count int
	for _, p := range powers {
		if powerToLUFS(p) > -70 {
			sum += p
			count++
		}
	}
	if count == 0 {
		return -120
	}

	relativeThreshold := powerToLUFS(sum/float64(count)) - 10

	sum, count = 0, 0
	for _, p := range powers {
		if powerToLUFS(p) > relativeThreshold {
			sum += p
			count++
		}
	}
	if count == 0 {
		return -120
	}

	return powerToLUFS(sum / float64(count))
}

// IntegratedLUFS is a convenience wrapper that runs a full interleaved
// buffer through a fresh LUFSMeter and returns its integrated loudness.
func IntegratedLUFS(interleaved []float64, sampleRate float64, numChannels int) float64 {
	m := NewLUFSMeter(sampleRate, numChannels)
	m.WriteInterleaved(interleaved)
	return m.Integrated()
}
