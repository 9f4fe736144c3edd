package exchanges

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bitvavo/go-bitvavo-api"
	"github.com/rs/zerolog"
)

var bitvavoIntervals = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1h",
	"2h":  "2h",
	"4h":  "4h",
	"6h":  "6h",
	"8h":  "8h",
	"12h": "12h",
	"1d":  "1d",
}

// BitvavoSource reads candles from Bitvavo
type BitvavoSource struct {
	client *bitvavo.Bitvavo
	logger zerolog.Logger
	name   string
}

// NewBitvavo creates a Bitvavo candle source. Credentials are optional for
// public market data.
func NewBitvavo(apiKey, secret string, logger zerolog.Logger) *BitvavoSource {
	client := &bitvavo.Bitvavo{
		ApiKey:       apiKey,
		ApiSecret:    secret,
		RestUrl:      "https://api.bitvavo.com/v2",
		WsUrl:        "wss://ws.bitvavo.com/v2/",
		AccessWindow: 10000,
	}

	return &BitvavoSource{
		client: client,
		logger: logger.With().Str("exchange", "bitvavo").Logger(),
		name:   "bitvavo",
	}
}

// GetName returns the exchange name
func (b *BitvavoSource) GetName() string {
	return b.name
}

// SupportedIntervals returns the accepted interval names
func (b *BitvavoSource) SupportedIntervals() []string {
	return intervalNames(bitvavoIntervals)
}

// GetKlines retrieves historical candles for a market such as BTC-EUR
func (b *BitvavoSource) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error) {
	bvInterval, ok := bitvavoIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}
	if limit <= 0 || limit > 1440 {
		limit = 200
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candles, err := b.client.Candles(symbol, bvInterval, map[string]string{
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get candles: %w", err)
	}

	b.logger.Info().
		Str("market", symbol).
		Str("interval", interval).
		Int("result_count", len(candles)).
		Msg("Received candles from Bitvavo API")

	klines := make([]*Kline, 0, len(candles))
	for _, c := range candles {
		kline, err := parseKline(symbol, interval, fmt.Sprint(c.Timestamp), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return nil, err
		}
		klines = append(klines, kline)
	}

	// Bitvavo returns the newest candle first
	sortKlines(klines)
	return klines, nil
}
