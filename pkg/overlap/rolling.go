package overlap

import (
	"gonum.org/v1/gonum/stat"
)

// RollingMean returns the trailing mean over window samples. Leading
// positions average whatever history exists (min periods of one).
func RollingMean(src []float64, window int) []float64 {
	out := make([]float64, len(src))
	if window <= 0 {
		window = 1
	}
	for i := range src {
		out[i] = stat.Mean(src[windowStart(i, window):i+1], nil)
	}
	return out
}

// RollingStd returns the trailing sample standard deviation over window
// samples. A window holding a single sample yields 0.
func RollingStd(src []float64, window int) []float64 {
	out := make([]float64, len(src))
	if window <= 0 {
		window = 1
	}
	for i := range src {
		w := src[windowStart(i, window) : i+1]
		if len(w) < 2 {
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}

func windowStart(i, window int) int {
	if s := i - window + 1; s > 0 {
		return s
	}
	return 0
}
