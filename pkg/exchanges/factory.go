package exchanges

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/pkg/config"
)

// Factory builds kline sources from configuration
type Factory struct {
	config *config.Config
	logger zerolog.Logger
}

// NewFactory creates a new exchange factory
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{
		config: cfg,
		logger: logger.With().Str("component", "exchange_factory").Logger(),
	}
}

// Create returns the kline source for an exchange name
func (f *Factory) Create(exchangeName string) (Source, error) {
	if ex, ok := f.config.Exchanges[exchangeName]; ok && !ex.Enabled {
		return nil, fmt.Errorf("exchange disabled in configuration: %s", exchangeName)
	}

	f.logger.Debug().
		Str("exchange", exchangeName).
		Msg("Creating exchange source")

	switch exchangeName {
	case "bybit":
		return NewBybit(f.config.BybitTestnet, f.logger), nil
	case "bitvavo":
		return NewBitvavo(f.config.BitvavoAPIKey, f.config.BitvavoSecret, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", exchangeName)
	}
}

// GetSupportedExchanges returns a list of supported exchange names
func (f *Factory) GetSupportedExchanges() []string {
	return []string{"bybit", "bitvavo"}
}
