package overlap

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when a series is shorter than the
	// indicator's minimum length.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrLengthMismatch is returned when paired series differ in length.
	ErrLengthMismatch = errors.New("series length mismatch")

	// ErrInvalidParameter is returned when a tuning parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// InsufficientDataError describes which indicator rejected the input and why.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: src length must be at least %d, got %d", e.Indicator, e.Need, e.Got)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

func requireLength(indicator string, n, need int) error {
	if n < need {
		return &InsufficientDataError{Indicator: indicator, Need: need, Got: n}
	}
	return nil
}

func requirePair(indicator string, high, low []float64) error {
	if len(high) != len(low) {
		return fmt.Errorf("%s: high has %d values, low has %d: %w", indicator, len(high), len(low), ErrLengthMismatch)
	}
	return nil
}
