package overlap

import (
	"errors"
	"fmt"
)

// Default periods used when a caller passes a zero or negative value.
const (
	DefaultSMAPeriod    = 14
	DefaultEMAPeriod    = 14
	DefaultDEMAPeriod   = 5
	DefaultBBandsPeriod = 14
	DefaultBBandsMulti  = 5.0
	DefaultMAVPMin      = 2
	DefaultMAVPMax      = 30
)

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SMA is the simple moving average with min periods of one.
func SMA(src []float64, period int) ([]float64, error) {
	period = orDefault(period, DefaultSMAPeriod)
	if err := requireLength("sma", len(src), period); err != nil {
		return nil, err
	}
	return RollingMean(src, period), nil
}

// MovingAverage is an alias of SMA.
func MovingAverage(src []float64, period int) ([]float64, error) {
	out, err := SMA(src, period)
	var ide *InsufficientDataError
	if errors.As(err, &ide) {
		ide.Indicator = "moving_average"
	}
	return out, err
}

// EMA is the exponential moving average seeded with the first sample.
func EMA(src []float64, period int) ([]float64, error) {
	period = orDefault(period, DefaultEMAPeriod)
	if err := requireLength("ema", len(src), period); err != nil {
		return nil, err
	}
	return ema(src, period), nil
}

func ema(src []float64, period int) []float64 {
	out := make([]float64, len(src))
	if len(src) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = src[0]
	for i := 1; i < len(src); i++ {
		out[i] = alpha*src[i] + (1-alpha)*out[i-1]
	}
	return out
}

// DEMA is 2*EMA(src) - EMA(EMA(src)).
func DEMA(src []float64, period int) ([]float64, error) {
	period = orDefault(period, DefaultDEMAPeriod)
	if err := requireLength("dema", len(src), period); err != nil {
		return nil, err
	}
	e1 := ema(src, period)
	e2 := ema(e1, period)
	out := make([]float64, len(src))
	for i := range out {
		out[i] = 2*e1[i] - e2[i]
	}
	return out, nil
}

// BBands returns the middle, upper and lower Bollinger bands. The band width
// is multi times the rolling sample standard deviation.
func BBands(src []float64, period int, multi float64) (middle, upper, lower []float64, err error) {
	period = orDefault(period, DefaultBBandsPeriod)
	if multi <= 0 {
		multi = DefaultBBandsMulti
	}
	if err := requireLength("bbands", len(src), period); err != nil {
		return nil, nil, nil, err
	}

	middle = RollingMean(src, period)
	dev := RollingStd(src, period)
	upper = make([]float64, len(src))
	lower = make([]float64, len(src))
	for i := range src {
		upper[i] = middle[i] + multi*dev[i]
		lower[i] = middle[i] - multi*dev[i]
	}
	return middle, upper, lower, nil
}

// MAVP is a moving average whose window varies per bar. periods[i] outside
// [minPeriod, maxPeriod] produces 0 at i.
func MAVP(src []float64, periods []int, minPeriod, maxPeriod int) ([]float64, error) {
	minPeriod = orDefault(minPeriod, DefaultMAVPMin)
	maxPeriod = orDefault(maxPeriod, DefaultMAVPMax)
	if len(periods) != len(src) {
		return nil, fmt.Errorf("mavp: %d prices, %d periods: %w", len(src), len(periods), ErrLengthMismatch)
	}

	out := make([]float64, len(src))
	for i, p := range periods {
		if p < minPeriod || p > maxPeriod {
			continue
		}
		var sum float64
		start := windowStart(i, p)
		for j := start; j <= i; j++ {
			sum += src[j]
		}
		out[i] = sum / float64(i-start+1)
	}
	return out, nil
}

// TypicalPrice is the bar midpoint (high+low)/2.
func TypicalPrice(high, low []float64) ([]float64, error) {
	if err := requirePair("typical_price", high, low); err != nil {
		return nil, err
	}
	return midpoint(high, low), nil
}

func midpoint(high, low []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		out[i] = (high[i] + low[i]) / 2
	}
	return out
}
