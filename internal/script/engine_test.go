package script

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/pkg/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	registry := indicator.NewRegistry(config.DefaultIndicators())
	return NewEngine(registry, t.TempDir(), zerolog.Nop())
}

func testData() Data {
	closes := []float64{23, 25, 12, 28, 33, 31, 35}
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	for i, c := range closes {
		high[i] = c + 1
		low[i] = c - 1
	}
	return Data{
		Open:   closes,
		High:   high,
		Low:    low,
		Close:  closes,
		Volume: []float64{1, 2, 3, 4, 5, 6, 7},
		Config: map[string]interface{}{"period": float64(3), "name": "test"},
	}
}

func TestRunIndicators(t *testing.T) {
	e := newTestEngine(t)

	src := `
fast = ema(close, period=config["period"])
bands = bbands(close, period=3, multiplier=2)
trend = mama(high, low, fast_limit=0.5)
result = {
    "ema": fast,
    "upper": bands["upper"],
    "mama": trend["mama"],
    "mid": typical_price(high, low),
}
`
	out, err := e.Run(context.Background(), "combo", src, testData())
	require.NoError(t, err)

	require.Len(t, out["ema"], 7)
	assert.InDelta(t, 32.25, out["ema"][6], 1e-9)
	assert.Len(t, out["upper"], 7)
	assert.Len(t, out["mama"], 7)
	assert.Equal(t, []float64{23, 25, 12, 28, 33, 31, 35}, out["mid"])
}

func TestRunHelpers(t *testing.T) {
	e := newTestEngine(t)

	src := `
log("running helpers")
result = {
    "highest": highest(close, 3),
    "lowest": lowest(close, 3),
    "up": crossover(close, [24, 24, 24, 24, 24, 24, 24]),
    "down": crossunder(close, [24, 24, 24, 24, 24, 24, 24]),
}
`
	out, err := e.Run(context.Background(), "helpers", src, testData())
	require.NoError(t, err)

	assert.True(t, math.IsNaN(out["highest"][0]))
	assert.True(t, math.IsNaN(out["highest"][1]))
	assert.Equal(t, 25.0, out["highest"][2])
	assert.Equal(t, 35.0, out["highest"][6])
	assert.Equal(t, 12.0, out["lowest"][3])

	assert.Equal(t, []float64{0, 1, 0, 1, 0, 0, 0}, out["up"])
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 0, 0}, out["down"])
}

func TestRunMAVP(t *testing.T) {
	e := newTestEngine(t)

	src := `result = {"mavp": mavp([10, 20, 30, 40, 50], periods=[2, 2, 2, 2, 2])}`
	out, err := e.Run(context.Background(), "mavp", src, Data{})
	require.NoError(t, err)
	assert.InDelta(t, 45.0, out["mavp"][4], 1e-9)
}

func TestRunErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t.Run("missing result", func(t *testing.T) {
		_, err := e.Run(ctx, "empty", `x = 1`, testData())
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("result of wrong type", func(t *testing.T) {
		_, err := e.Run(ctx, "bad", `result = [1, 2]`, testData())
		assert.Error(t, err)
	})

	t.Run("insufficient data surfaces", func(t *testing.T) {
		_, err := e.Run(ctx, "short", `result = {"s": sma(close)}`, testData())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "src length must be at least 14")
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := e.Run(ctx, "syntax", `result = {`, testData())
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		src := `
def spin():
    n = 0
    for i in range(100000000):
        n += i
    return n
result = {"n": [spin()]}
`
		_, err := e.Run(cctx, "spin", src, testData())
		assert.Error(t, err)
	})
}

func TestRunFile(t *testing.T) {
	e := newTestEngine(t)

	err := os.WriteFile(filepath.Join(e.dir, "smooth.star"), []byte(`result = {"dema": dema(close, period=3)}`), 0644)
	require.NoError(t, err)

	out, err := e.RunFile(context.Background(), "smooth", testData())
	require.NoError(t, err)
	assert.Len(t, out["dema"], 7)

	names, err := e.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"smooth"}, names)

	_, err = e.RunFile(context.Background(), "missing", testData())
	assert.Error(t, err)

	_, err = e.Load("../etc/passwd")
	assert.Error(t, err)
}

func TestToStarlark(t *testing.T) {
	v, err := toStarlark(map[string]interface{}{
		"n":    float64(3),
		"f":    1.5,
		"list": []interface{}{"a", true, nil},
	})
	require.NoError(t, err)
	assert.Contains(t, v.String(), `"n": 3`)
	assert.Contains(t, v.String(), `"f": 1.5`)

	_, err = toStarlark(struct{}{})
	assert.Error(t, err)
}
