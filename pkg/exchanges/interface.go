package exchanges

import (
	"context"
	"sort"
	"time"
)

// Kline represents a candlestick/kline data point
type Kline struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Interval  string
}

// Source is a market data provider that can backfill historical klines.
type Source interface {
	GetName() string

	// GetKlines returns up to limit klines, oldest first.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error)

	// SupportedIntervals lists the interval names GetKlines accepts.
	SupportedIntervals() []string
}

func sortKlines(klines []*Kline) {
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].Timestamp.Before(klines[j].Timestamp)
	})
}

func intervalNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
