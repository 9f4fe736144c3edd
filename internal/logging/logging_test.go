package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/pkg/config"
)

func TestNewLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	t.Run("level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LoggingConfig{Level: "warn"}, &buf)

		logger.Info().Msg("hidden")
		logger.Warn().Str("indicator", "sma").Msg("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("info message should be filtered at warn level: %s", out)
		}
		if !strings.Contains(out, `"indicator":"sma"`) {
			t.Errorf("expected structured field in output: %s", out)
		}
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LoggingConfig{Level: "loud"}, &buf)

		if logger.GetLevel() != zerolog.InfoLevel {
			t.Errorf("expected info level, got %s", logger.GetLevel())
		}
	})

	t.Run("pretty output is not JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LoggingConfig{Level: "info", Pretty: true}, &buf)

		logger.Info().Msg("hello")
		if strings.HasPrefix(buf.String(), "{") {
			t.Errorf("expected console output, got %s", buf.String())
		}
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected message in output, got %s", buf.String())
		}
	})
}
