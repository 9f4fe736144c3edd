// Package overlap implements overlap-study indicators over price series:
// simple, exponential and double exponential moving averages, Bollinger
// Bands, Kaufman's adaptive moving average, the MESA adaptive moving average
// and the Hilbert Transform instantaneous trendline.
//
// Every function is a batch transform. It never mutates its input, returns
// one value per input bar aligned by position, and fails with
// ErrInsufficientData when the series is shorter than the indicator needs.
// Indicators that read the bar midpoint take high and low series of equal
// length.
package overlap
