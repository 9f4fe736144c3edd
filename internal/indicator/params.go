package indicator

import (
	"github.com/arijanluiken/overlap/pkg/config"
)

// Params carries every tunable indicator parameter. Zero values are replaced
// by the configured defaults before computing.
type Params struct {
	TimePeriod    int     `json:"time_period,omitempty"`
	Multiplier    float64 `json:"multiplier,omitempty"`
	Fast          int     `json:"fast,omitempty"`
	Slow          int     `json:"slow,omitempty"`
	SeedWithPrice *bool   `json:"seed_with_price,omitempty"`
	FastLimit     float64 `json:"fast_limit,omitempty"`
	SlowLimit     float64 `json:"slow_limit,omitempty"`
	Periods       []int   `json:"periods,omitempty"`
	MinPeriod     int     `json:"min_period,omitempty"`
	MaxPeriod     int     `json:"max_period,omitempty"`
}

// Input holds the price columns an indicator reads.
type Input struct {
	High  []float64
	Low   []float64
	Close []float64
}

func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func pickFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// period returns the configured period for an indicator when unset.
func (p Params) period(def int) int {
	return pick(p.TimePeriod, def)
}

func (p Params) seedWithPrice(def bool) bool {
	if p.SeedWithPrice != nil {
		return *p.SeedWithPrice
	}
	return def
}

// resolved returns a copy with every unset field filled from defaults for
// the named indicator. It is what gets logged with a computation.
func (p Params) resolved(name string, d config.IndicatorConfig) Params {
	out := p
	switch name {
	case "sma":
		out.TimePeriod = p.period(d.SMAPeriod)
	case "ema":
		out.TimePeriod = p.period(d.EMAPeriod)
	case "dema":
		out.TimePeriod = p.period(d.DEMAPeriod)
	case "bbands":
		out.TimePeriod = p.period(d.BBandsPeriod)
		out.Multiplier = pickFloat(p.Multiplier, d.BBandsMulti)
	case "kama":
		out.TimePeriod = p.period(d.KAMA.Period)
		out.Fast = pick(p.Fast, d.KAMA.Fast)
		out.Slow = pick(p.Slow, d.KAMA.Slow)
		seed := p.seedWithPrice(d.KAMA.SeedWithPrice)
		out.SeedWithPrice = &seed
	case "mama":
		out.FastLimit = pickFloat(p.FastLimit, d.MAMA.FastLimit)
		out.SlowLimit = pickFloat(p.SlowLimit, d.MAMA.SlowLimit)
	case "mavp":
		out.MinPeriod = pick(p.MinPeriod, d.MAVP.MinPeriod)
		out.MaxPeriod = pick(p.MaxPeriod, d.MAVP.MaxPeriod)
	}
	return out
}
