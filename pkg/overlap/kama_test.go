package overlap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kamaSamples = []float64{
	35, 10, 20, 56, 10, 20, 56, 89, 89, 76, 76, 30, 10, 20, 56, 89,
	46, 10, 653, 10, 20, 56, 89, 30, 46, 10, 653, 76, 30, 46, 10, 653,
}

func TestKAMA(t *testing.T) {
	out, err := KAMA(kamaSamples, KAMAConfig{TimePeriod: 10, Fast: 2, Slow: 30})
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, 0.0, out[0])
	for i, v := range out {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "index %d is %v", i, v)
	}
}

func TestKAMAValues(t *testing.T) {
	tests := []struct {
		name     string
		seed     bool
		expected map[int]float64
	}{
		{
			name: "zero seed",
			expected: map[int]float64{
				1:  4.444444444444443,
				2:  6.063128685397153,
				3:  9.002562988335098,
				5:  9.241423377244779,
				10: 22.115222815621934,
				11: 22.222930793712134,
				18: 153.50217124404594,
				19: 152.31812762518052,
				31: 191.93405472184585,
			},
		},
		{
			name: "price seed",
			seed: true,
			expected: map[int]float64{
				1:  23.888888888888893,
				10: 34.833725227445065,
				31: 198.23398582050527,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := KAMA(kamaSamples, KAMAConfig{TimePeriod: 10, Fast: 2, Slow: 30, SeedWithPrice: tt.seed})
			require.NoError(t, err)
			for i, want := range tt.expected {
				assert.InDelta(t, want, out[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestKAMASeedWithPrice(t *testing.T) {
	out, err := KAMA(kamaSamples, KAMAConfig{SeedWithPrice: true})
	require.NoError(t, err)
	assert.Equal(t, kamaSamples[0], out[0])
}

func TestKAMAFirstStep(t *testing.T) {
	// A straight line is perfectly efficient, so sc is the fast constant squared.
	src := []float64{10, 11, 12, 13}
	out, err := KAMA(src, KAMAConfig{TimePeriod: 3, SeedWithPrice: true})
	require.NoError(t, err)

	fast := 2.0 / 3.0
	assert.InDelta(t, 10+fast*fast*1, out[1], 1e-12)
}

func TestKAMAFlatSeries(t *testing.T) {
	src := make([]float64, 12)
	for i := range src {
		src[i] = 7
	}
	out, err := KAMA(src, KAMAConfig{SeedWithPrice: true})
	require.NoError(t, err)
	for _, v := range out {
		assert.Equal(t, 7.0, v)
	}
}

func TestKAMAInsufficientData(t *testing.T) {
	_, err := KAMA(kamaSamples[:9], KAMAConfig{})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = KAMA(kamaSamples[:10], KAMAConfig{})
	assert.NoError(t, err)
}
