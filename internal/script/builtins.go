package script

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"

	"github.com/arijanluiken/overlap/internal/indicator"
)

func (e *Engine) setupBuiltins() {
	e.builtin = starlark.StringDict{
		"highest":    starlark.NewBuiltin("highest", e.highest),
		"lowest":     starlark.NewBuiltin("lowest", e.lowest),
		"crossover":  starlark.NewBuiltin("crossover", e.crossover),
		"crossunder": starlark.NewBuiltin("crossunder", e.crossunder),
		"log":        starlark.NewBuiltin("log", e.logFunc),
	}

	// Every registered indicator is callable by name.
	for _, def := range e.registry.Describe() {
		e.builtin[def.Name] = e.indicatorBuiltin(def)
	}
}

// indicatorBuiltin exposes a registry indicator. Close based indicators take
// (prices, ...), high/low ones take (high, low, ...). Tunables are keyword
// arguments named like the JSON params.
func (e *Engine) indicatorBuiltin(def indicator.Definition) *starlark.Builtin {
	return starlark.NewBuiltin(def.Name, func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			first, second                    starlark.Value
			period, fast, slow               int
			minPeriod, maxPeriod             int
			multiplier, fastLimit, slowLimit starlark.Value
			seed, periods                    starlark.Value
		)

		var pairs []interface{}
		if def.Source == indicator.SourceHighLow {
			pairs = append(pairs, "high", &first, "low", &second)
		} else {
			pairs = append(pairs, "prices", &first)
		}
		pairs = append(pairs,
			"period?", &period,
			"multiplier?", &multiplier,
			"fast?", &fast,
			"slow?", &slow,
			"seed_with_price?", &seed,
			"fast_limit?", &fastLimit,
			"slow_limit?", &slowLimit,
			"periods?", &periods,
			"min_period?", &minPeriod,
			"max_period?", &maxPeriod,
		)
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs, pairs...); err != nil {
			return nil, err
		}

		req := indicator.Request{
			Indicator: def.Name,
			Params: indicator.Params{
				TimePeriod: period,
				Fast:       fast,
				Slow:       slow,
				MinPeriod:  minPeriod,
				MaxPeriod:  maxPeriod,
			},
		}

		var err error
		if def.Source == indicator.SourceHighLow {
			if req.High, err = starlarkToFloats(first); err != nil {
				return nil, fmt.Errorf("%s: high: %w", fn.Name(), err)
			}
			if req.Low, err = starlarkToFloats(second); err != nil {
				return nil, fmt.Errorf("%s: low: %w", fn.Name(), err)
			}
		} else if req.Close, err = starlarkToFloats(first); err != nil {
			return nil, fmt.Errorf("%s: prices: %w", fn.Name(), err)
		}

		if req.Params.Multiplier, err = optionalFloat(multiplier); err != nil {
			return nil, fmt.Errorf("%s: multiplier: %w", fn.Name(), err)
		}
		if req.Params.FastLimit, err = optionalFloat(fastLimit); err != nil {
			return nil, fmt.Errorf("%s: fast_limit: %w", fn.Name(), err)
		}
		if req.Params.SlowLimit, err = optionalFloat(slowLimit); err != nil {
			return nil, fmt.Errorf("%s: slow_limit: %w", fn.Name(), err)
		}
		if b, ok := seed.(starlark.Bool); ok {
			v := bool(b)
			req.Params.SeedWithPrice = &v
		}
		if periods != nil && periods != starlark.None {
			values, err := starlarkToFloats(periods)
			if err != nil {
				return nil, fmt.Errorf("%s: periods: %w", fn.Name(), err)
			}
			req.Params.Periods = make([]int, len(values))
			for i, v := range values {
				req.Params.Periods[i] = int(v)
			}
		}

		res, err := e.registry.Compute(req)
		if err != nil {
			return nil, err
		}

		if len(res.Outputs) == 1 {
			for _, series := range res.Outputs {
				return floatListToStarlark(series), nil
			}
		}

		names := make([]string, 0, len(res.Outputs))
		for name := range res.Outputs {
			names = append(names, name)
		}
		sort.Strings(names)

		dict := starlark.NewDict(len(names))
		for _, name := range names {
			if err := dict.SetKey(starlark.String(name), floatListToStarlark(res.Outputs[name])); err != nil {
				return nil, err
			}
		}
		return dict, nil
	})
}

func (e *Engine) highest(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return e.rollingExtreme(fn, args, kwargs, func(a, b float64) bool { return a > b })
}

func (e *Engine) lowest(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return e.rollingExtreme(fn, args, kwargs, func(a, b float64) bool { return a < b })
}

// rollingExtreme yields NaN until a full window is available.
func (e *Engine) rollingExtreme(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, better func(a, b float64) bool) (starlark.Value, error) {
	var prices starlark.Value
	var period int

	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "prices", &prices, "period", &period); err != nil {
		return nil, err
	}
	if period < 1 {
		return nil, fmt.Errorf("%s: period must be positive", fn.Name())
	}

	values, err := starlarkToFloats(prices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}

	result := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			result[i] = math.NaN()
			continue
		}
		best := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if better(values[j], best) {
				best = values[j]
			}
		}
		result[i] = best
	}
	return floatListToStarlark(result), nil
}

func (e *Engine) crossover(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return e.cross(fn, args, kwargs, func(prev1, curr1, prev2, curr2 float64) bool {
		return prev1 <= prev2 && curr1 > curr2
	})
}

func (e *Engine) crossunder(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return e.cross(fn, args, kwargs, func(prev1, curr1, prev2, curr2 float64) bool {
		return prev1 >= prev2 && curr1 < curr2
	})
}

func (e *Engine) cross(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, crossed func(prev1, curr1, prev2, curr2 float64) bool) (starlark.Value, error) {
	var series1, series2 starlark.Value

	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "series1", &series1, "series2", &series2); err != nil {
		return nil, err
	}

	a, err := starlarkToFloats(series1)
	if err != nil {
		return nil, fmt.Errorf("%s: series1: %w", fn.Name(), err)
	}
	b, err := starlarkToFloats(series2)
	if err != nil {
		return nil, fmt.Errorf("%s: series2: %w", fn.Name(), err)
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%s: series lengths differ (%d and %d)", fn.Name(), len(a), len(b))
	}

	result := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		result[i] = crossed(a[i-1], a[i], b[i-1], b[i])
	}
	return boolListToStarlark(result), nil
}

func (e *Engine) logFunc(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string

	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "message", &msg); err != nil {
		return nil, err
	}

	e.logger.Info().Str("source", "script").Str("thread", thread.Name).Msg(msg)
	return starlark.None, nil
}

func floatListToStarlark(values []float64) *starlark.List {
	elems := make([]starlark.Value, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			elems[i] = starlark.None
		} else {
			elems[i] = starlark.Float(v)
		}
	}
	return starlark.NewList(elems)
}

func boolListToStarlark(values []bool) *starlark.List {
	elems := make([]starlark.Value, len(values))
	for i, v := range values {
		elems[i] = starlark.Bool(v)
	}
	return starlark.NewList(elems)
}

// starlarkToFloats converts any iterable of numbers. None becomes NaN and
// booleans become 0 or 1.
func starlarkToFloats(v starlark.Value) ([]float64, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", v.Type())
	}

	var out []float64
	iter := iterable.Iterate()
	defer iter.Done()

	var x starlark.Value
	for iter.Next(&x) {
		switch x := x.(type) {
		case starlark.NoneType:
			out = append(out, math.NaN())
		case starlark.Bool:
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		default:
			f, ok := starlark.AsFloat(x)
			if !ok {
				return nil, fmt.Errorf("expected a number, got %s", x.Type())
			}
			out = append(out, f)
		}
	}
	if out == nil {
		out = []float64{}
	}
	return out, nil
}

func optionalFloat(v starlark.Value) (float64, error) {
	if v == nil || v == starlark.None {
		return 0, nil
	}
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %s", v.Type())
	}
	return f, nil
}

// toStarlark converts decoded JSON or YAML values.
func toStarlark(v interface{}) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return starlark.MakeInt64(int64(v)), nil
		}
		return starlark.Float(v), nil
	case string:
		return starlark.String(v), nil
	case []interface{}:
		elems := make([]starlark.Value, len(v))
		for i := range v {
			elem, err := toStarlark(v[i])
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return starlark.NewList(elems), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(v))
		for key, value := range v {
			elem, err := toStarlark(value)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), elem); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}
