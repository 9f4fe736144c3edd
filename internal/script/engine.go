package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/arijanluiken/overlap/internal/indicator"
)

// ErrNoResult is returned when a script finishes without a result dict.
var ErrNoResult = errors.New("script did not define result")

// Data is the bar data and configuration exposed to a script.
type Data struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
	Config map[string]interface{}
}

// Engine executes Starlark scripts that combine indicators.
type Engine struct {
	logger   zerolog.Logger
	registry *indicator.Registry
	builtin  starlark.StringDict
	dir      string
}

// NewEngine creates a script engine. Named scripts are read from dir.
func NewEngine(registry *indicator.Registry, dir string, logger zerolog.Logger) *Engine {
	e := &Engine{
		logger:   logger,
		registry: registry,
		dir:      dir,
	}
	e.setupBuiltins()
	return e
}

// Run executes src and returns the series the script stored in result.
func (e *Engine) Run(ctx context.Context, name, src string, data Data) (map[string][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("script-%s", name),
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug().Str("script", name).Msg(msg)
		},
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	globals, err := e.prepareGlobals(data)
	if err != nil {
		return nil, err
	}

	result, err := starlark.ExecFile(thread, name+".star", src, globals)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, fmt.Errorf("script %s failed: %s", name, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("script %s failed: %w", name, err)
	}

	out, err := extractResult(result)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}

	e.logger.Debug().
		Str("script", name).
		Int("series", len(out)).
		Msg("Script executed")

	return out, nil
}

// RunFile loads <dir>/<name>.star and runs it.
func (e *Engine) RunFile(ctx context.Context, name string, data Data) (map[string][]float64, error) {
	src, err := e.Load(name)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, name, src, data)
}

// Load reads a named script from the scripts directory.
func (e *Engine) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid script name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(e.dir, name+".star"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("script not found: %s", name)
		}
		return "", fmt.Errorf("failed to read script %s: %w", name, err)
	}
	return string(data), nil
}

// List returns the names of the scripts in the scripts directory.
func (e *Engine) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(e.dir, "*.star"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".star"))
	}
	return names, nil
}

func (e *Engine) prepareGlobals(data Data) (starlark.StringDict, error) {
	globals := make(starlark.StringDict, len(e.builtin)+6)
	for k, v := range e.builtin {
		globals[k] = v
	}

	globals["open"] = floatListToStarlark(data.Open)
	globals["high"] = floatListToStarlark(data.High)
	globals["low"] = floatListToStarlark(data.Low)
	globals["close"] = floatListToStarlark(data.Close)
	globals["volume"] = floatListToStarlark(data.Volume)

	config, err := toStarlark(data.Config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	globals["config"] = config

	return globals, nil
}

func extractResult(globals starlark.StringDict) (map[string][]float64, error) {
	value, ok := globals["result"]
	if !ok {
		return nil, ErrNoResult
	}
	dict, ok := value.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("result must be a dict, got %s", value.Type())
	}

	out := make(map[string][]float64, dict.Len())
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("result keys must be strings, got %s", item[0].Type())
		}
		series, err := starlarkToFloats(item[1])
		if err != nil {
			return nil, fmt.Errorf("result[%q]: %w", key, err)
		}
		out[key] = series
	}
	return out, nil
}
