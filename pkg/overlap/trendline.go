package overlap

import "math"

const (
	// trendSeedBars leading bars of the trendline are the price itself.
	trendSeedBars = 26

	trendLag         = 7
	trendMaxLookback = 40
	minDeltaPhase    = 7.0
	maxDeltaPhase    = 60.0
)

// trendState is the working state of the instantaneous trendline.
type trendState struct {
	price      []float64
	value3     []float64
	inPhase    []float64
	quadrature []float64
	phase      []float64
	deltaPhase []float64
	instPeriod []float64
	period     []float64
	trend      []float64
}

func newTrendState(price []float64) *trendState {
	n := len(price)
	s := &trendState{
		price:      price,
		value3:     make([]float64, n),
		inPhase:    make([]float64, n),
		quadrature: make([]float64, n),
		phase:      make([]float64, n),
		deltaPhase: make([]float64, n),
		instPeriod: make([]float64, n),
		period:     make([]float64, n),
		trend:      make([]float64, n),
	}
	copy(s.trend, price)
	return s
}

func (s *trendState) run() {
	for i := trendLag; i < len(s.price); i++ {
		s.step(i)
	}
}

func (s *trendState) step(i int) {
	s.value3[i] = s.price[i] - s.price[i-trendLag]
	s.inPhase[i] = trendInPhase.step(s.value3, s.inPhase, i)
	s.quadrature[i] = trendQuadrature.step(s.value3, s.quadrature, i)

	s.phase[i] = s.phase[i-1]
	if den := s.inPhase[i] + s.inPhase[i-1]; den != 0 {
		s.phase[i] = quadrantPhase(
			atanDeg(math.Abs((s.quadrature[i]+s.quadrature[i-1])/den)),
			s.inPhase[i], s.quadrature[i],
		)
	}

	delta := s.phase[i-1] - s.phase[i]
	if s.phase[i-1] < 90 && s.phase[i] > 270 {
		delta = 360 + s.phase[i-1] - s.phase[i]
	}
	s.deltaPhase[i] = clamp(delta, minDeltaPhase, maxDeltaPhase)

	s.instPeriod[i] = s.instPeriod[i-1]
	var sum float64
	for count := 0; count <= trendMaxLookback && count <= i; count++ {
		sum += s.deltaPhase[i-count]
		if sum > 360 {
			s.instPeriod[i] = float64(count)
			break
		}
	}

	s.period[i] = clamp(ema2(s.instPeriod[i], s.period[i-1], 0.25), minCyclePeriod, maxCyclePeriod)

	if i < trendSeedBars {
		return
	}
	length := int(math.Round(s.period[i])) + 2
	if length > i+1 {
		length = i + 1
	}
	var total float64
	for j := i - length + 1; j <= i; j++ {
		total += s.price[j]
	}
	s.trend[i] = total / float64(length)
}

// quadrantPhase places a first-quadrant angle into [0, 360) using the
// signs of the in-phase and quadrature components.
func quadrantPhase(angle, inPhase, quadrature float64) float64 {
	switch {
	case inPhase < 0 && quadrature > 0:
		angle = 180 - angle
	case inPhase < 0 && quadrature < 0:
		angle = 180 + angle
	case inPhase > 0 && quadrature < 0:
		angle = 360 - angle
	}
	if angle >= 360 {
		angle -= 360
	}
	return angle
}

// Trendline computes the Hilbert Transform instantaneous trendline over the
// bar midpoint: the mean price across the current dominant cycle.
func Trendline(high, low []float64) ([]float64, error) {
	if err := requirePair("ht_trendline", high, low); err != nil {
		return nil, err
	}
	if err := requireLength("ht_trendline", len(high), hilbertWarmup); err != nil {
		return nil, err
	}

	s := newTrendState(midpoint(high, low))
	s.run()
	return s.trend, nil
}
