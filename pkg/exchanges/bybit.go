package exchanges

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/rs/zerolog"
)

// bybitIntervals maps common interval names to Bybit V5 intervals
var bybitIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
	"1M":  "M",
}

// BybitSource reads public spot klines from Bybit
type BybitSource struct {
	client  *bybit.Client
	logger  zerolog.Logger
	name    string
	testnet bool
}

// NewBybit creates a Bybit kline source. Market data is public, so no
// credentials are needed.
func NewBybit(testnet bool, logger zerolog.Logger) *BybitSource {
	client := bybit.NewClient()
	if testnet {
		client = client.WithBaseURL("https://api-testnet.bybit.com")
	}

	return &BybitSource{
		client:  client,
		logger:  logger.With().Str("exchange", "bybit").Logger(),
		name:    "bybit",
		testnet: testnet,
	}
}

// GetName returns the exchange name
func (b *BybitSource) GetName() string {
	return b.name
}

// SupportedIntervals returns the accepted interval names
func (b *BybitSource) SupportedIntervals() []string {
	return intervalNames(bybitIntervals)
}

// GetKlines retrieves historical kline data
func (b *BybitSource) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error) {
	bybitInterval, ok := bybitIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	param := bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(symbol),
		Interval: bybit.Interval(bybitInterval),
		Limit:    &limit,
	}

	resp, err := b.client.V5().Market().GetKline(param)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	b.logger.Info().
		Str("symbol", symbol).
		Str("interval", interval).
		Int("result_count", len(resp.Result.List)).
		Msg("Received spot klines from Bybit API")

	klines := make([]*Kline, 0, len(resp.Result.List))
	for _, item := range resp.Result.List {
		kline, err := parseKline(symbol, interval, item.StartTime, item.Open, item.High, item.Low, item.Close, item.Volume)
		if err != nil {
			return nil, err
		}
		klines = append(klines, kline)
	}

	// Bybit returns the newest kline first
	sortKlines(klines)
	return klines, nil
}

func parseKline(symbol, interval, startMillis, open, high, low, closePrice, volume string) (*Kline, error) {
	ms, err := strconv.ParseInt(startMillis, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid kline timestamp %q: %w", startMillis, err)
	}

	values := make([]float64, 5)
	for i, s := range []string{open, high, low, closePrice, volume} {
		if values[i], err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("invalid kline value %q: %w", s, err)
		}
	}

	return &Kline{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Interval:  interval,
	}, nil
}
