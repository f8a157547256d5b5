package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFractal is returned for fractal widths other than three and five.
	ErrUnsupportedFractal = errors.New("unsupported fractal width")
	// ErrUnsupportedStopLoss is returned for unknown stop loss sources.
	ErrUnsupportedStopLoss = errors.New("unsupported stop loss source")
)

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Fractal represents the number of candles compared to classify a swing point.
type Fractal int

const (
	FractalThree Fractal = 3
	FractalFive  Fractal = 5
)

// Validate asserts the fractal width is supported.
func (f Fractal) Validate() error {
	switch f {
	case FractalThree, FractalFive:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedFractal, int(f))
	}
}

// HalfWidth returns the number of neighbouring candles compared on each side.
func (f Fractal) HalfWidth() int {
	return (int(f) - 1) / 2
}

// StopLossSource represents where the stop loss level of an entry is derived from.
type StopLossSource int

const (
	HigherTimeframeFractal StopLossSource = iota
	LowerTimeframeFractal
	SweepLevel
)

// String stringifies the provided stop loss source.
func (s StopLossSource) String() string {
	switch s {
	case HigherTimeframeFractal:
		return "htf"
	case LowerTimeframeFractal:
		return "ltf"
	case SweepLevel:
		return "sweep"
	default:
		return "unknown"
	}
}

// Validate asserts the stop loss source is supported.
func (s StopLossSource) Validate() error {
	switch s {
	case HigherTimeframeFractal, LowerTimeframeFractal, SweepLevel:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedStopLoss, int(s))
	}
}

// ParseStopLossSource parses the provided stop loss source string.
func ParseStopLossSource(s string) (StopLossSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "htf":
		return HigherTimeframeFractal, nil
	case "ltf":
		return LowerTimeframeFractal, nil
	case "sweep":
		return SweepLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedStopLoss, s)
	}
}
