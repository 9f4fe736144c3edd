package overlap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMAMAAlphaBounds(t *testing.T) {
	// Deltas below 1 would push alpha past the fast limit, large deltas
	// would drive it under the slow limit.
	deltas := []float64{-400, -1, 0, 1e-9, 0.25, 0.999, 1, 2, 9.99, 10, 11, 500, 1e9}
	for _, d := range deltas {
		a := mamaAlpha(d, DefaultMAMAFastLimit, DefaultMAMASlowLimit)
		assert.GreaterOrEqual(t, a, DefaultMAMASlowLimit, "delta %v", d)
		assert.LessOrEqual(t, a, DefaultMAMAFastLimit, "delta %v", d)
	}

	assert.Equal(t, DefaultMAMAFastLimit, mamaAlpha(0, 0.5, 0.05))
	assert.Equal(t, DefaultMAMASlowLimit, mamaAlpha(100, 0.5, 0.05))
	assert.InDelta(t, 0.125, mamaAlpha(4, 0.5, 0.05), 1e-12)
}

func TestMAMA(t *testing.T) {
	high := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1, 0, 11, 12, 13}
	low := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1, 0, 11, 12, 13}

	mama, fama, err := MAMA(high, low, 0, 0)
	require.NoError(t, err)
	require.Len(t, mama, len(high))
	require.Len(t, fama, len(high))

	for i := 0; i < hilbertWarmup; i++ {
		assert.Zero(t, mama[i])
		assert.Zero(t, fama[i])
	}

	expected := []struct {
		index      int
		mama, fama float64
	}{
		{6, 3.5, 0.875},
		{7, 5.75, 2.09375},
		{8, 7.375, 3.4140625},
		{9, 4.1875, 3.607421875},
		{10, 2.09375, 3.22900390625},
		{11, 3.7834717932012913, 3.281601602935579},
		{12, 7.891735896600646, 4.4341351763518455},
		{13, 9.72882914212906, 5.386204834926911},
	}
	for _, e := range expected {
		assert.InDelta(t, e.mama, mama[e.index], 1e-9, "mama[%d]", e.index)
		assert.InDelta(t, e.fama, fama[e.index], 1e-9, "fama[%d]", e.index)
	}
}

func TestMAMACycle(t *testing.T) {
	price := cycle(60, 20)
	mama, fama, err := MAMA(price, price, 0.5, 0.05)
	require.NoError(t, err)

	expected := []struct {
		index      int
		mama, fama float64
	}{
		{40, 100.6766503443478, 99.5714121350161},
		{41, 101.31860146815372, 99.76357168269455},
		{42, 103.17876386480805, 100.61736972822293},
		{43, 103.32957992016138, 100.68517498302138},
		{44, 104.47284502520273, 101.28234350360087},
		{45, 105.86142251260137, 102.427113255851},
	}
	for _, e := range expected {
		assert.InDelta(t, e.mama, mama[e.index], 1e-9, "mama[%d]", e.index)
		assert.InDelta(t, e.fama, fama[e.index], 1e-9, "fama[%d]", e.index)
	}
}

// flatGap oscillates around zero with a flat stretch that drives the
// in-phase component to exactly zero at bars 29 and 31.
func flatGap() []float64 {
	pattern := []float64{0, 2, 4, 2, 0, -2, -4, -2, 1, -1}
	out := make([]float64, 40)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	for i := 19; i <= 28; i++ {
		out[i] = 0
	}
	return out
}

func TestMAMAHoldsPhaseWithoutInPhase(t *testing.T) {
	price := flatGap()

	c := newCascade(price)
	c.run(nil)
	require.Zero(t, c.i1[29])
	require.Zero(t, c.i1[31])
	require.NotZero(t, c.i1[30])

	mama, fama, err := MAMA(price, price, 0, 0)
	require.NoError(t, err)

	// Resetting the phase to zero at bar 29 would give mama -0.05605.
	expected := []struct {
		index      int
		mama, fama float64
	}{
		{28, -0.006367836292418928, -0.14467526158624322},
		{29, -0.5031839181462094, -0.23430242572623478},
		{30, -0.47802472223889897, -0.24039548313905137},
		{31, 0.7609876388805505, 0.009950297365849098},
		{32, 1.9181075963090708, 0.3507898259555139},
		{33, 1.9590537981545353, 0.7528558190052692},
	}
	for _, e := range expected {
		assert.InDelta(t, e.mama, mama[e.index], 1e-9, "mama[%d]", e.index)
		assert.InDelta(t, e.fama, fama[e.index], 1e-9, "fama[%d]", e.index)
	}
}

func TestMAMALimits(t *testing.T) {
	price := cycle(40, 20)

	tests := []struct {
		name       string
		fast, slow float64
		valid      bool
	}{
		{"defaults", 0, 0, true},
		{"equal limits", 0.3, 0.3, true},
		{"fast of one", 1, 0.05, true},
		{"default slow under fast", 0.1, 0, true},
		{"fast above one", 3, 0.05, false},
		{"slow above fast", 0.1, 0.3, false},
		{"slow above default fast", 0, 0.8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := MAMA(price, price, tt.fast, tt.slow)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestMAMATracksPrice(t *testing.T) {
	price := cycle(400, 30)
	mama, fama, err := MAMA(price, price, 0.5, 0.05)
	require.NoError(t, err)

	// Every bar blends price in with alpha in [0.05, 0.5], so once the zero
	// seed has decayed the averages stay inside the price range.
	lo, hi := price[0], price[0]
	for _, p := range price {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	lo, hi = lo-1, hi+1
	for i := 300; i < len(price); i++ {
		assert.True(t, mama[i] >= lo && mama[i] <= hi, "mama[%d]=%v", i, mama[i])
		assert.True(t, fama[i] >= lo && fama[i] <= hi, "fama[%d]=%v", i, fama[i])
	}
}

func TestMAMAInsufficientData(t *testing.T) {
	_, _, err := MAMA([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, 0, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = MAMA([]float64{1, 2, 3, 4, 5, 6}, []float64{1, 2, 3, 4, 5, 6}, 0, 0)
	assert.NoError(t, err)
}
