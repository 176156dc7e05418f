package mastering

import "math"

// equalPowerCrossfade blends the trailing overlap of chunk a with the
// leading overlap of chunk b using a cos/sin equal-power curve, per
// spec.md §4.5: "Both source chunks contribute audio for those samples;
// neither is used alone." a and b must have the same length (the overlap
// region, in frames) and channel count.
func equalPowerCrossfade(a, b [][]float64) [][]float64 {
	if len(a) == 0 || len(b) == 0 {
		return a
	}
	n := len(a[0])
	out := make([][]float64, len(a))
	for c := range a {
		out[c] = make([]float64, n)
		for i := 0; i < n; i++ {
			t := float64(i) / float64(maxInt(n-1, 1))
			fadeOut := math.Cos(t * math.Pi / 2)
			fadeIn := math.Sin(t * math.Pi / 2)
			out[c][i] = a[c][i]*fadeOut + b[c][i]*fadeIn
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
