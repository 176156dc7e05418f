// Package contentanalyzer extracts a ContentDescriptor from a decoded
// audio window: loudness, dynamics, spectral shape, and stereo field
// measurements the target generator projects into its 5-D parameter
// space.
package contentanalyzer

// ContentDescriptor summarizes one audio window. Every field is always
// populated; silent input yields the canonical silence descriptor
// (RMS/peak/crest zero, uniform band energies, centroid at 0Hz).
type ContentDescriptor struct {
	RMSEnergy  float64
	PeakEnergy float64

	IntegratedLoudnessLUFS float64
	CrestFactorDB          float64

	SpectralCentroidHz float64
	SpectralRolloffHz  float64
	SpectralFlux       float64

	BandEnergy []float64 // len == config.BarkBands, sums to 1

	StereoWidth float64

	ZeroCrossingRate float64
	AttackTimeMs     float64
}

// History carries exponential moving averages of a descriptor's
// scalar fields across successive windows (alpha = 0.1), letting the
// analyzer smooth out chunk-to-chunk jitter for long-term trend fields.
type History struct {
	initialized bool

	RMSEnergy              float64
	PeakEnergy             float64
	IntegratedLoudnessLUFS float64
	CrestFactorDB          float64
	SpectralCentroidHz     float64
	BandEnergy             []float64
}

const historyAlpha = 0.1

// Update folds a new descriptor into the running averages.
func (h *History) Update(d ContentDescriptor) {
	if !h.initialized {
		h.RMSEnergy = d.RMSEnergy
		h.PeakEnergy = d.PeakEnergy
		h.IntegratedLoudnessLUFS = d.IntegratedLoudnessLUFS
		h.CrestFactorDB = d.CrestFactorDB
		h.SpectralCentroidHz = d.SpectralCentroidHz
		h.BandEnergy = append([]float64(nil), d.BandEnergy...)
		h.initialized = true
		return
	}

	h.RMSEnergy = ema(h.RMSEnergy, d.RMSEnergy)
	h.PeakEnergy = ema(h.PeakEnergy, d.PeakEnergy)
	h.IntegratedLoudnessLUFS = ema(h.IntegratedLoudnessLUFS, d.IntegratedLoudnessLUFS)
	h.CrestFactorDB = ema(h.CrestFactorDB, d.CrestFactorDB)
	h.SpectralCentroidHz = ema(h.SpectralCentroidHz, d.SpectralCentroidHz)

	if len(h.BandEnergy) != len(d.BandEnergy) {
		h.BandEnergy = append([]float64(nil), d.BandEnergy...)
		return
	}
	for i := range h.BandEnergy {
		h.BandEnergy[i] = ema(h.BandEnergy[i], d.BandEnergy[i])
	}
}

func ema(prev, next float64) float64 {
	return historyAlpha*next + (1-historyAlpha)*prev
}

// SilenceDescriptor returns the canonical descriptor for digital silence.
func SilenceDescriptor() ContentDescriptor {
	uniform := make([]float64, bandCount)
	for i := range uniform {
		uniform[i] = 1.0 / float64(bandCount)
	}
	return ContentDescriptor{
		BandEnergy:             uniform,
		IntegratedLoudnessLUFS: -120,
	}
}
