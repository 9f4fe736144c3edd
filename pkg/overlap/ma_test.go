package overlap

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var regression = []float64{23, 25, 12, 28, 33, 31, 35}

func TestRollingMean(t *testing.T) {
	got := RollingMean(regression, 3)
	want := []float64{23, 24, 20, 65.0 / 3, 73.0 / 3, 92.0 / 3, 33}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestRollingStd(t *testing.T) {
	got := RollingStd([]float64{1, 2, 3, 4, 5}, 5)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, math.Sqrt(0.5), got[1], 1e-9)
	assert.InDelta(t, 1.0, got[2], 1e-9)
	assert.InDelta(t, 1.5811388, got[4], 1e-6)
}

func TestSMA(t *testing.T) {
	out, err := SMA(regression, 3)
	require.NoError(t, err)
	assert.Len(t, out, len(regression))
	assert.InDelta(t, 33.0, out[6], 1e-9)

	_, err = SMA(regression, 8)
	assert.ErrorIs(t, err, ErrInsufficientData)

	out, err = SMA(make([]float64, DefaultSMAPeriod), 0)
	require.NoError(t, err)
	assert.Len(t, out, DefaultSMAPeriod)
}

func TestMovingAverageLabelsError(t *testing.T) {
	_, err := MovingAverage([]float64{1, 2}, 3)
	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, "moving_average", ide.Indicator)
	assert.Equal(t, 3, ide.Need)
	assert.Equal(t, 2, ide.Got)
}

func TestEMA(t *testing.T) {
	t.Run("regression vector", func(t *testing.T) {
		out, err := EMA(regression, 3)
		require.NoError(t, err)
		require.Len(t, out, 7)
		assert.Equal(t, regression[0], out[0])

		want := []float64{23, 24, 18, 23, 28, 29.5, 32.25}
		for i := range want {
			assert.InDelta(t, want[i], out[i], 1e-9, "index %d", i)
		}
	})

	t.Run("constant input", func(t *testing.T) {
		src := []float64{42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42}
		out, err := EMA(src, 5)
		require.NoError(t, err)
		for i, v := range out {
			assert.InDelta(t, 42.0, v, 1e-12, "index %d", i)
		}
	})

	t.Run("minimum length", func(t *testing.T) {
		_, err := EMA(regression, 7)
		assert.NoError(t, err)
		_, err = EMA(regression, 8)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestDEMA(t *testing.T) {
	out, err := DEMA(regression, 3)
	require.NoError(t, err)
	require.Len(t, out, len(regression))
	// EMA of EMA at bar 1 is 23.5, so 2*24 - 23.5.
	assert.InDelta(t, 23.0, out[0], 1e-9)
	assert.InDelta(t, 24.5, out[1], 1e-9)

	_, err = DEMA([]float64{1, 2, 3, 4}, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBBands(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1, 0, 11, 12, 13}

	middle, upper, lower, err := BBands(src, 5, 2)
	require.NoError(t, err)
	require.Len(t, middle, len(src))
	require.Len(t, upper, len(src))
	require.Len(t, lower, len(src))

	assert.Equal(t, 1.0, middle[0])
	assert.Equal(t, middle[0], upper[0])
	assert.Equal(t, middle[0], lower[0])

	assert.InDelta(t, 3.0, middle[4], 1e-9)
	assert.InDelta(t, 3+2*1.5811388, upper[4], 1e-6)
	assert.InDelta(t, 3-2*1.5811388, lower[4], 1e-6)

	for i := range src {
		assert.InDelta(t, middle[i]-lower[i], upper[i]-middle[i], 1e-9)
	}

	_, _, _, err = BBands(src[:4], 5, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMAVP(t *testing.T) {
	src := []float64{35, 10, 20, 56, 89, 76, 30, 46, 10, 653}
	periods := []int{2, 5, 8, 1, 6, 9, 4, 2, 3, 1}

	out, err := MAVP(src, periods, 2, 8)
	require.NoError(t, err)
	require.Len(t, out, len(src))

	assert.Equal(t, 35.0, out[0])
	assert.InDelta(t, 22.5, out[1], 1e-9)
	assert.InDelta(t, 65.0/3, out[2], 1e-9)
	assert.Equal(t, 0.0, out[3])
	assert.Equal(t, 0.0, out[5])
	assert.InDelta(t, 42.0, out[4], 1e-9)
	assert.InDelta(t, 38.0, out[7], 1e-9)
	assert.Equal(t, 0.0, out[9])

	_, err = MAVP(src, periods[:3], 2, 8)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTypicalPrice(t *testing.T) {
	out, err := TypicalPrice([]float64{10, 12}, []float64{8, 8})
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 10}, out)

	_, err = TypicalPrice([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestInputNotMutated(t *testing.T) {
	src := append([]float64(nil), regression...)
	_, _ = EMA(src, 3)
	_, _ = DEMA(src, 3)
	_, _, _, _ = BBands(src, 3, 2)
	assert.Equal(t, regression, src)
}
