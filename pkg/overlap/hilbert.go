package overlap

import "math"

// hilbertWarmup is the number of leading bars the cascade leaves at zero.
const hilbertWarmup = 6

const (
	minCyclePeriod = 6.0
	maxCyclePeriod = 50.0
)

// tap is one weighted lagged sample of a filter.
type tap struct {
	lag    int
	weight float64
}

// kernel is a finite set of taps evaluated at a single bar. Taps reaching
// before index 0 contribute nothing.
type kernel []tap

func (k kernel) apply(src []float64, i int) float64 {
	var sum float64
	for _, t := range k {
		if j := i - t.lag; j >= 0 {
			sum += t.weight * src[j]
		}
	}
	return sum
}

// recursive combines a feed-forward kernel over an input series with a
// feedback kernel over the filter's own output.
type recursive struct {
	input    kernel
	feedback kernel
}

func (r recursive) step(src, out []float64, i int) float64 {
	return r.input.apply(src, i) + r.feedback.apply(out, i)
}

var (
	// 4-bar weighted price smoother.
	smoothKernel = kernel{{0, 0.4}, {1, 0.3}, {2, 0.2}, {3, 0.1}}

	// Fixed-coefficient Hilbert transformer, scaled per bar by the
	// bandwidth adjustment derived from the previous period estimate.
	hilbertKernel = kernel{{0, 0.0962}, {2, 0.5769}, {4, -0.5769}, {6, -0.0962}}

	// In-phase and quadrature recursions of the instantaneous trendline,
	// both driven by the 7-bar price difference.
	trendInPhase = recursive{
		input:    kernel{{4, 1.25}, {2, -1.25 * 0.635}},
		feedback: kernel{{3, 0.635}},
	}
	trendQuadrature = recursive{
		input:    kernel{{2, 1}, {0, -0.338}},
		feedback: kernel{{2, 0.338}},
	}
)

// ema2 is the two-weight smoother x*w + prev*(1-w) used throughout the
// cascade.
func ema2(x, prev, w float64) float64 {
	return w*x + (1-w)*prev
}

func atanDeg(x float64) float64 {
	return math.Atan(x) * 180 / math.Pi
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// cascade is the state vector of the homodyne Hilbert cascade. Every slice
// has the input length and is filled left to right by step.
type cascade struct {
	price        []float64
	smooth       []float64
	detrender    []float64
	i1           []float64
	q1           []float64
	ji           []float64
	jq           []float64
	i2           []float64
	q2           []float64
	re           []float64
	im           []float64
	period       []float64
	smoothPeriod []float64
}

func newCascade(price []float64) *cascade {
	n := len(price)
	return &cascade{
		price:        price,
		smooth:       make([]float64, n),
		detrender:    make([]float64, n),
		i1:           make([]float64, n),
		q1:           make([]float64, n),
		ji:           make([]float64, n),
		jq:           make([]float64, n),
		i2:           make([]float64, n),
		q2:           make([]float64, n),
		re:           make([]float64, n),
		im:           make([]float64, n),
		period:       make([]float64, n),
		smoothPeriod: make([]float64, n),
	}
}

// run evaluates every bar past the warm-up region and calls each after the
// bar's state is complete.
func (c *cascade) run(each func(i int)) {
	for i := hilbertWarmup; i < len(c.price); i++ {
		c.step(i)
		if each != nil {
			each(i)
		}
	}
}

func (c *cascade) step(i int) {
	adj := 0.075*c.period[i-1] + 0.54

	c.smooth[i] = smoothKernel.apply(c.price, i)
	c.detrender[i] = hilbertKernel.apply(c.smooth, i) * adj
	c.q1[i] = hilbertKernel.apply(c.detrender, i) * adj
	c.i1[i] = c.detrender[i-3]

	// Advance the phase of i1 and q1 by 90 degrees.
	c.ji[i] = hilbertKernel.apply(c.i1, i) * adj
	c.jq[i] = hilbertKernel.apply(c.q1, i) * adj

	c.i2[i] = ema2(c.i1[i]-c.jq[i], c.i2[i-1], 0.2)
	c.q2[i] = ema2(c.q1[i]+c.ji[i], c.q2[i-1], 0.2)

	// Homodyne discriminator.
	re := c.i2[i]*c.i2[i-1] + c.q2[i]*c.q2[i-1]
	im := c.i2[i]*c.q2[i-1] - c.q2[i]*c.i2[i-1]
	c.re[i] = ema2(re, c.re[i-1], 0.2)
	c.im[i] = ema2(im, c.im[i-1], 0.2)

	prev := c.period[i-1]
	raw := prev
	if c.im[i] != 0 && c.re[i] != 0 {
		raw = 360 / atanDeg(c.im[i]/c.re[i])
	}
	raw = math.Min(raw, 1.5*prev)
	raw = math.Max(raw, 0.67*prev)
	raw = clamp(raw, minCyclePeriod, maxCyclePeriod)

	c.period[i] = ema2(raw, prev, 0.2)
	c.smoothPeriod[i] = ema2(c.period[i], c.smoothPeriod[i-1], 0.33)
}

// HilbertTransform returns the quadrature (Q1) and in-phase (I1) components
// of the bar midpoint.
func HilbertTransform(high, low []float64) (q1, i1 []float64, err error) {
	if err := requirePair("ht_transform", high, low); err != nil {
		return nil, nil, err
	}
	if err := requireLength("ht_transform", len(high), hilbertWarmup); err != nil {
		return nil, nil, err
	}

	c := newCascade(midpoint(high, low))
	c.run(nil)
	return c.q1, c.i1, nil
}

// HTDCPeriod returns the smoothed dominant cycle period.
func HTDCPeriod(high, low []float64) ([]float64, error) {
	if err := requirePair("ht_dcperiod", high, low); err != nil {
		return nil, err
	}
	if err := requireLength("ht_dcperiod", len(high), hilbertWarmup); err != nil {
		return nil, err
	}

	c := newCascade(midpoint(high, low))
	c.run(nil)
	return c.smoothPeriod, nil
}
