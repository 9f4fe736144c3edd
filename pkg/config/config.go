package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database   DatabaseConfig            `yaml:"database"`
	API        APIConfig                 `yaml:"api"`
	UI         UIConfig                  `yaml:"ui"`
	Logging    LoggingConfig             `yaml:"logging"`
	Calculator CalculatorConfig          `yaml:"calculator"`
	Scripts    ScriptsConfig             `yaml:"scripts"`
	Indicators IndicatorConfig           `yaml:"indicators"`
	Exchanges  map[string]ExchangeConfig `yaml:"exchanges"`

	// Environment variables (from .env)
	BybitTestnet  bool
	BitvavoAPIKey string
	BitvavoSecret string
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

type UIConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// CalculatorConfig sizes the pool of indicator calculator actors.
type CalculatorConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

type ScriptsConfig struct {
	Directory string `yaml:"directory"`
}

// IndicatorConfig holds the defaults applied to requests that leave a
// parameter unset.
type IndicatorConfig struct {
	SMAPeriod    int     `yaml:"sma_period"`
	EMAPeriod    int     `yaml:"ema_period"`
	DEMAPeriod   int     `yaml:"dema_period"`
	BBandsPeriod int     `yaml:"bbands_period"`
	BBandsMulti  float64 `yaml:"bbands_multi"`

	KAMA KAMAConfig `yaml:"kama"`
	MAMA MAMAConfig `yaml:"mama"`
	MAVP MAVPConfig `yaml:"mavp"`
}

type KAMAConfig struct {
	Period        int  `yaml:"period"`
	Fast          int  `yaml:"fast"`
	Slow          int  `yaml:"slow"`
	SeedWithPrice bool `yaml:"seed_with_price"`
}

type MAMAConfig struct {
	FastLimit float64 `yaml:"fast_limit"`
	SlowLimit float64 `yaml:"slow_limit"`
}

type MAVPConfig struct {
	MinPeriod int `yaml:"min_period"`
	MaxPeriod int `yaml:"max_period"`
}

type ExchangeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load loads configuration from environment and config.yaml
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile loads configuration from environment and the given YAML file.
// A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Path: getEnvOrDefault("DATABASE_PATH", "./overlap.db"),
		},
		API: APIConfig{
			Port:    getEnvIntOrDefault("API_PORT", 8080),
			Timeout: time.Duration(getEnvIntOrDefault("API_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		UI: UIConfig{
			Port: getEnvIntOrDefault("UI_PORT", 8081),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Pretty: getEnvOrDefault("LOG_PRETTY", "false") == "true",
		},
		Calculator: CalculatorConfig{
			Workers: getEnvIntOrDefault("CALCULATOR_WORKERS", 4),
			Timeout: 5 * time.Second,
		},
		Scripts: ScriptsConfig{
			Directory: getEnvOrDefault("SCRIPTS_DIR", "./scripts"),
		},
		Indicators: DefaultIndicators(),
		Exchanges: map[string]ExchangeConfig{
			"bybit":   {Enabled: true},
			"bitvavo": {Enabled: true},
		},
		BybitTestnet:  getEnvOrDefault("BYBIT_TESTNET", "false") == "true",
		BitvavoAPIKey: os.Getenv("BITVAVO_API_KEY"),
		BitvavoSecret: os.Getenv("BITVAVO_SECRET"),
	}

	// Load YAML config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if config.Calculator.Workers < 1 {
		config.Calculator.Workers = 1
	}

	return config, nil
}

// DefaultIndicators returns the stock indicator parameters.
func DefaultIndicators() IndicatorConfig {
	return IndicatorConfig{
		SMAPeriod:    14,
		EMAPeriod:    14,
		DEMAPeriod:   5,
		BBandsPeriod: 14,
		BBandsMulti:  5,
		KAMA: KAMAConfig{
			Period: 10,
			Fast:   2,
			Slow:   30,
		},
		MAMA: MAMAConfig{
			FastLimit: 0.5,
			SlowLimit: 0.05,
		},
		MAVP: MAVPConfig{
			MinPeriod: 2,
			MaxPeriod: 30,
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := parseIntSafe(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseIntSafe(s string) (int, error) {
	var result int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, &parseError{s}
		}
		result = result*10 + int(c-'0')
	}
	return result, nil
}

type parseError struct {
	value string
}

func (e *parseError) Error() string {
	return "invalid integer: " + e.value
}
