package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arijanluiken/overlap/pkg/config"
	"github.com/arijanluiken/overlap/pkg/overlap"
)

var (
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrNoInput          = errors.New("no input series")
	ErrInvalidParams    = errors.New("invalid parameters")
)

// Source column an indicator reads.
const (
	SourceClose   = "close"
	SourceHighLow = "high_low"
)

// Func computes named output series for one input.
type Func func(in Input, p Params) (map[string][]float64, error)

// Definition describes a registered indicator.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Outputs     []string `json:"outputs"`
	Compute     Func     `json:"-"`
}

// Request asks for one indicator over inline series or a stored dataset.
type Request struct {
	Indicator string    `json:"indicator"`
	Dataset   string    `json:"dataset,omitempty"`
	High      []float64 `json:"high,omitempty"`
	Low       []float64 `json:"low,omitempty"`
	Close     []float64 `json:"close,omitempty"`
	Params    Params    `json:"params"`
}

// Result is the output of one computation, aligned bar for bar with the
// input.
type Result struct {
	Indicator string               `json:"indicator"`
	Length    int                  `json:"length"`
	Params    Params               `json:"params"`
	Outputs   map[string][]float64 `json:"outputs"`
}

// MarshalJSON encodes non-finite values as null.
func (r Result) MarshalJSON() ([]byte, error) {
	outputs := make(map[string][]*float64, len(r.Outputs))
	for name, series := range r.Outputs {
		values := make([]*float64, len(series))
		for i := range series {
			if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
				values[i] = &series[i]
			}
		}
		outputs[name] = values
	}

	type alias struct {
		Indicator string                `json:"indicator"`
		Length    int                   `json:"length"`
		Params    Params                `json:"params"`
		Outputs   map[string][]*float64 `json:"outputs"`
	}
	return json.Marshal(alias{
		Indicator: r.Indicator,
		Length:    r.Length,
		Params:    r.Params,
		Outputs:   outputs,
	})
}

// Registry dispatches requests to registered indicators.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]Definition
	defaults config.IndicatorConfig
}

// NewRegistry returns a registry holding the builtin indicators.
func NewRegistry(defaults config.IndicatorConfig) *Registry {
	r := &Registry{
		defs:     make(map[string]Definition),
		defaults: defaults,
	}
	for _, def := range builtins() {
		r.defs[def.Name] = def
	}
	return r
}

// Register adds an indicator. Names are case-insensitive and unique.
func (r *Registry) Register(def Definition) error {
	name := strings.ToLower(def.Name)
	if name == "" || def.Compute == nil {
		return fmt.Errorf("indicator needs a name and a compute function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("indicator %s already registered", name)
	}
	def.Name = name
	r.defs[name] = def
	return nil
}

// Lookup finds an indicator by name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[strings.ToLower(name)]
	return def, ok
}

// Names returns the registered indicator names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns every definition ordered by name.
func (r *Registry) Describe() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, _ := r.Lookup(name)
		defs = append(defs, def)
	}
	return defs
}

// Defaults returns the parameters applied to unset request fields.
func (r *Registry) Defaults() config.IndicatorConfig {
	return r.defaults
}

// Compute runs a single request.
func (r *Registry) Compute(req Request) (*Result, error) {
	def, ok := r.Lookup(req.Indicator)
	if !ok {
		return nil, fmt.Errorf("%s: %w", req.Indicator, ErrUnknownIndicator)
	}

	in, err := resolveInput(def.Source, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	params := req.Params.resolved(def.Name, r.defaults)
	outputs, err := def.Compute(in, params)
	if err != nil {
		return nil, err
	}

	length := 0
	for _, series := range outputs {
		length = len(series)
		break
	}

	return &Result{
		Indicator: def.Name,
		Length:    length,
		Params:    params,
		Outputs:   outputs,
	}, nil
}

// ComputeAll runs independent requests concurrently. Results keep the order
// of reqs; the first failure cancels the rest.
func (r *Registry) ComputeAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.Compute(reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveInput fills the columns an indicator needs. Close-based indicators
// fall back to the bar midpoint, midpoint-based ones to close.
func resolveInput(source string, req Request) (Input, error) {
	in := Input{High: req.High, Low: req.Low, Close: req.Close}
	hasHL := len(in.High) > 0 || len(in.Low) > 0

	switch source {
	case SourceHighLow:
		if !hasHL {
			if len(in.Close) == 0 {
				return in, ErrNoInput
			}
			in.High, in.Low = in.Close, in.Close
		}
		if len(in.High) != len(in.Low) {
			return in, overlap.ErrLengthMismatch
		}
	default:
		if len(in.Close) == 0 {
			if !hasHL {
				return in, ErrNoInput
			}
			mid, err := overlap.TypicalPrice(in.High, in.Low)
			if err != nil {
				return in, err
			}
			in.Close = mid
		}
	}
	return in, nil
}
