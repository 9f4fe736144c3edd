package indicator

import (
	"fmt"

	"github.com/arijanluiken/overlap/pkg/overlap"
)

func builtins() []Definition {
	return []Definition{
		{
			Name:        "sma",
			Description: "Simple moving average",
			Source:      SourceClose,
			Outputs:     []string{"sma"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.SMA(in.Close, p.TimePeriod)
				return single("sma", out, err)
			},
		},
		{
			Name:        "ema",
			Description: "Exponential moving average seeded with the first price",
			Source:      SourceClose,
			Outputs:     []string{"ema"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.EMA(in.Close, p.TimePeriod)
				return single("ema", out, err)
			},
		},
		{
			Name:        "dema",
			Description: "Double exponential moving average",
			Source:      SourceClose,
			Outputs:     []string{"dema"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.DEMA(in.Close, p.TimePeriod)
				return single("dema", out, err)
			},
		},
		{
			Name:        "bbands",
			Description: "Bollinger Bands around the simple moving average",
			Source:      SourceClose,
			Outputs:     []string{"middle", "upper", "lower"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				middle, upper, lower, err := overlap.BBands(in.Close, p.TimePeriod, p.Multiplier)
				if err != nil {
					return nil, err
				}
				return map[string][]float64{"middle": middle, "upper": upper, "lower": lower}, nil
			},
		},
		{
			Name:        "kama",
			Description: "Kaufman adaptive moving average",
			Source:      SourceClose,
			Outputs:     []string{"kama"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.KAMA(in.Close, overlap.KAMAConfig{
					TimePeriod:    p.TimePeriod,
					Fast:          p.Fast,
					Slow:          p.Slow,
					SeedWithPrice: p.seedWithPrice(false),
				})
				return single("kama", out, err)
			},
		},
		{
			Name:        "mama",
			Description: "MESA adaptive moving average and following average",
			Source:      SourceHighLow,
			Outputs:     []string{"mama", "fama"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				mama, fama, err := overlap.MAMA(in.High, in.Low, p.FastLimit, p.SlowLimit)
				if err != nil {
					return nil, err
				}
				return map[string][]float64{"mama": mama, "fama": fama}, nil
			},
		},
		{
			Name:        "ht_trendline",
			Description: "Hilbert Transform instantaneous trendline",
			Source:      SourceHighLow,
			Outputs:     []string{"trendline"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.Trendline(in.High, in.Low)
				return single("trendline", out, err)
			},
		},
		{
			Name:        "ht_transform",
			Description: "Hilbert Transform quadrature and in-phase components",
			Source:      SourceHighLow,
			Outputs:     []string{"q1", "i1"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				q1, i1, err := overlap.HilbertTransform(in.High, in.Low)
				if err != nil {
					return nil, err
				}
				return map[string][]float64{"q1": q1, "i1": i1}, nil
			},
		},
		{
			Name:        "ht_dcperiod",
			Description: "Hilbert Transform smoothed dominant cycle period",
			Source:      SourceHighLow,
			Outputs:     []string{"period"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.HTDCPeriod(in.High, in.Low)
				return single("period", out, err)
			},
		},
		{
			Name:        "mavp",
			Description: "Moving average with a period per bar",
			Source:      SourceClose,
			Outputs:     []string{"mavp"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				periods := p.Periods
				if len(periods) == 0 {
					if p.TimePeriod <= 0 {
						return nil, fmt.Errorf("mavp: periods or time_period is required: %w", ErrInvalidParams)
					}
					periods = make([]int, len(in.Close))
					for i := range periods {
						periods[i] = p.TimePeriod
					}
				}
				out, err := overlap.MAVP(in.Close, periods, p.MinPeriod, p.MaxPeriod)
				return single("mavp", out, err)
			},
		},
		{
			Name:        "typical_price",
			Description: "Bar midpoint (high+low)/2",
			Source:      SourceHighLow,
			Outputs:     []string{"price"},
			Compute: func(in Input, p Params) (map[string][]float64, error) {
				out, err := overlap.TypicalPrice(in.High, in.Low)
				return single("price", out, err)
			},
		},
	}
}

func single(name string, out []float64, err error) (map[string][]float64, error) {
	if err != nil {
		return nil, err
	}
	return map[string][]float64{name: out}, nil
}
