// Package fingerprint persists and loads the per-track MasteringFingerprint
// (spec.md §3.1) the target generator blends into its per-chunk descriptor
// projection, and adapts it to the external extraction collaborator.
package fingerprint

import "github.com/audiophile-labs/mastering-engine/internal/target"

// schemaVersion is the current FingerprintBlob encoding version. Bumping
// it does not require migrating old rows: readers that see an unknown
// version fall back to descriptor-only targeting (spec.md §6.1).
const schemaVersion = 1

// MasteringFingerprint is the ~25-value aggregated summary of a track's
// long-term features (spec.md §3.1): mean and variance of spectral
// balance, typical dynamic range, typical LUFS, dominant bands, plus a
// schema version tag. Immutable after publication.
type MasteringFingerprint struct {
	Version int

	MeanLUFS float64
	VarLUFS  float64

	MeanCrestDB float64
	VarCrestDB  float64

	MeanBassPct float64
	VarBassPct  float64

	MeanMidPct float64
	VarMidPct  float64

	MeanSpectralCentroidHz float64
	VarSpectralCentroidHz  float64

	MeanStereoWidth float64
	VarStereoWidth  float64

	// DominantBands holds the indices of the BarkBands-count bands with
	// the highest mean energy across the track, most-dominant first.
	DominantBands []int

	// BandEnergyMean/BandEnergyVar are per-band aggregates across the
	// whole track, same length and ordering as ContentDescriptor.BandEnergy.
	BandEnergyMean []float64
	BandEnergyVar  []float64
}

// Summary converts the fingerprint into the small read-only view
// internal/target consumes, keeping internal/target free of any
// dependency on fingerprint storage or extraction.
func (f *MasteringFingerprint) Summary() *target.FingerprintSummary {
	if f == nil {
		return nil
	}
	return &target.FingerprintSummary{
		MeanLUFS:    f.MeanLUFS,
		MeanCrestDB: f.MeanCrestDB,
		MeanBassPct: f.MeanBassPct,
		MeanMidPct:  f.MeanMidPct,
	}
}
