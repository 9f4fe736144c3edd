package overlap

import "math"

const (
	DefaultKAMAPeriod = 10
	DefaultKAMAFast   = 2
	DefaultKAMASlow   = 30
)

// KAMAConfig parameterises Kaufman's Adaptive Moving Average. Zero fields
// take the package defaults.
type KAMAConfig struct {
	TimePeriod int
	Fast       int
	Slow       int

	// SeedWithPrice starts the recursion at the first price instead of 0.
	SeedWithPrice bool
}

func (c KAMAConfig) withDefaults() KAMAConfig {
	c.TimePeriod = orDefault(c.TimePeriod, DefaultKAMAPeriod)
	c.Fast = orDefault(c.Fast, DefaultKAMAFast)
	c.Slow = orDefault(c.Slow, DefaultKAMASlow)
	return c
}

// KAMA computes Kaufman's Adaptive Moving Average. Bars before TimePeriod
// measure efficiency over the history available so far.
func KAMA(src []float64, cfg KAMAConfig) ([]float64, error) {
	cfg = cfg.withDefaults()
	if err := requireLength("kama", len(src), cfg.TimePeriod); err != nil {
		return nil, err
	}

	fastSC := 2.0 / float64(cfg.Fast+1)
	slowSC := 2.0 / float64(cfg.Slow+1)

	out := make([]float64, len(src))
	if cfg.SeedWithPrice {
		out[0] = src[0]
	}

	for i := 1; i < len(src); i++ {
		start := i - cfg.TimePeriod
		if start < 0 {
			start = 0
		}
		direction := math.Abs(src[i] - src[start])
		var volatility float64
		for k := start + 1; k <= i; k++ {
			volatility += math.Abs(src[k] - src[k-1])
		}

		var er float64
		if volatility != 0 {
			er = direction / volatility
		}
		sc := er*(fastSC-slowSC) + slowSC
		sc *= sc
		out[i] = out[i-1] + sc*(src[i]-out[i-1])
	}
	return out, nil
}
