package overlap

import "fmt"

const (
	DefaultMAMAFastLimit = 0.5
	DefaultMAMASlowLimit = 0.05
)

// MAMA computes the MESA Adaptive Moving Average and its following average
// over the bar midpoint. Non-positive limits select the defaults; the
// resolved limits must satisfy 0 < slow <= fast <= 1.
func MAMA(high, low []float64, fastLimit, slowLimit float64) (mama, fama []float64, err error) {
	if fastLimit <= 0 {
		fastLimit = DefaultMAMAFastLimit
	}
	if slowLimit <= 0 {
		slowLimit = DefaultMAMASlowLimit
	}
	if fastLimit > 1 || slowLimit > fastLimit {
		return nil, nil, fmt.Errorf("mama: limits must satisfy 0 < slow <= fast <= 1, got fast %g slow %g: %w",
			fastLimit, slowLimit, ErrInvalidParameter)
	}
	if err := requirePair("mama", high, low); err != nil {
		return nil, nil, err
	}
	if err := requireLength("mama", len(high), hilbertWarmup); err != nil {
		return nil, nil, err
	}

	price := midpoint(high, low)
	c := newCascade(price)
	phase := make([]float64, len(price))
	mama = make([]float64, len(price))
	fama = make([]float64, len(price))

	c.run(func(i int) {
		// With no in-phase energy the phase keeps its last value.
		phase[i] = phase[i-1]
		if c.i1[i] != 0 {
			phase[i] = c.q1[i] / c.i1[i]
		}

		alpha := mamaAlpha(phase[i-1]-phase[i], fastLimit, slowLimit)
		mama[i] = ema2(price[i], mama[i-1], alpha)
		fama[i] = ema2(mama[i], fama[i-1], 0.5*alpha)
	})
	return mama, fama, nil
}

// mamaAlpha maps a phase change to a smoothing factor in [slow, fast].
func mamaAlpha(deltaPhase, fast, slow float64) float64 {
	if deltaPhase < 1 {
		deltaPhase = 1
	}
	alpha := fast / deltaPhase
	if alpha < slow {
		alpha = slow
	}
	return alpha
}
