package exchanges

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Exchanges: map[string]config.ExchangeConfig{
			"bybit":   {Enabled: true},
			"bitvavo": {Enabled: true},
		},
	}
}

func TestFactoryGetSupportedExchanges(t *testing.T) {
	factory := NewFactory(testConfig(), zerolog.Nop())

	supported := factory.GetSupportedExchanges()
	expected := []string{"bybit", "bitvavo"}

	if len(supported) != len(expected) {
		t.Fatalf("expected %d supported exchanges, got %d", len(expected), len(supported))
	}
	for i, exchange := range expected {
		if supported[i] != exchange {
			t.Errorf("expected exchange %s at index %d, got %s", exchange, i, supported[i])
		}
	}
}

func TestFactoryCreate(t *testing.T) {
	factory := NewFactory(testConfig(), zerolog.Nop())

	for _, name := range []string{"bybit", "bitvavo"} {
		t.Run("creates "+name, func(t *testing.T) {
			source, err := factory.Create(name)
			if err != nil {
				t.Fatalf("expected no error creating %s, got %v", name, err)
			}
			if source.GetName() != name {
				t.Errorf("expected source name '%s', got '%s'", name, source.GetName())
			}
			if len(source.SupportedIntervals()) == 0 {
				t.Error("expected supported intervals")
			}
		})
	}

	t.Run("rejects unknown exchange", func(t *testing.T) {
		if _, err := factory.Create("kraken"); err == nil {
			t.Error("expected error for unsupported exchange, got nil")
		}
	})

	t.Run("rejects disabled exchange", func(t *testing.T) {
		cfg := testConfig()
		cfg.Exchanges["bitvavo"] = config.ExchangeConfig{Enabled: false}

		if _, err := NewFactory(cfg, zerolog.Nop()).Create("bitvavo"); err == nil {
			t.Error("expected error for disabled exchange, got nil")
		}
	})
}

func TestBybitIntervalMapping(t *testing.T) {
	tests := map[string]string{
		"1m": "1",
		"1h": "60",
		"4h": "240",
		"1d": "D",
		"1w": "W",
		"1M": "M",
	}
	for in, want := range tests {
		if got := bybitIntervals[in]; got != want {
			t.Errorf("interval %s: expected %s, got %s", in, want, got)
		}
	}
}

func TestParseKline(t *testing.T) {
	k, err := parseKline("BTCUSDT", "1h", "1704067200000", "42000.5", "42100", "41900", "42050.25", "12.5")
	if err != nil {
		t.Fatalf("expected no error parsing kline, got %v", err)
	}
	if !k.Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", k.Timestamp)
	}
	if k.Open != 42000.5 || k.High != 42100 || k.Low != 41900 || k.Close != 42050.25 || k.Volume != 12.5 {
		t.Errorf("unexpected kline values %+v", k)
	}

	if _, err := parseKline("BTCUSDT", "1h", "not-a-time", "1", "1", "1", "1", "1"); err == nil {
		t.Error("expected error for bad timestamp")
	}
	if _, err := parseKline("BTCUSDT", "1h", "0", "1", "x", "1", "1", "1"); err == nil {
		t.Error("expected error for bad price")
	}
}

func TestSortKlines(t *testing.T) {
	now := time.Now()
	klines := []*Kline{
		{Timestamp: now.Add(2 * time.Minute)},
		{Timestamp: now},
		{Timestamp: now.Add(time.Minute)},
	}
	sortKlines(klines)
	for i := 1; i < len(klines); i++ {
		if klines[i].Timestamp.Before(klines[i-1].Timestamp) {
			t.Fatalf("klines not ascending at %d", i)
		}
	}
}
