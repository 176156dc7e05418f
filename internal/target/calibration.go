package target

import "github.com/audiophile-labs/mastering-engine/internal/config"

// Bounds are the observed extremes of the calibration reference set,
// per spec.md §3.1: "space bounds are not hard-coded constants; they are
// observed from a small calibration set of reference recordings at
// initialization time."
type Bounds struct {
	LUFSMin, LUFSMax   float64
	CrestMin, CrestMax float64
}

// ComputeBounds folds a calibration reference set into the LUFS/crest
// extremes the parameter-space projection normalizes against. An empty
// set falls back to the spec's illustrative defaults (-30/-7 LUFS,
// 6/20 dB crest) so the generator still has a usable space before any
// calibration data loads.
func ComputeBounds(points []config.CalibrationPoint) Bounds {
	if len(points) == 0 {
		return Bounds{LUFSMin: -30, LUFSMax: -7, CrestMin: 6, CrestMax: 20}
	}

	b := Bounds{
		LUFSMin:  points[0].LUFS,
		LUFSMax:  points[0].LUFS,
		CrestMin: points[0].CrestDB,
		CrestMax: points[0].CrestDB,
	}
	for _, p := range points[1:] {
		if p.LUFS < b.LUFSMin {
			b.LUFSMin = p.LUFS
		}
		if p.LUFS > b.LUFSMax {
			b.LUFSMax = p.LUFS
		}
		if p.CrestDB < b.CrestMin {
			b.CrestMin = p.CrestDB
		}
		if p.CrestDB > b.CrestMax {
			b.CrestMax = p.CrestDB
		}
	}
	return b
}
