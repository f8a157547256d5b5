package priceaction

import (
	"time"

	"github.com/dnldd/sweep/shared"
)

// SwingKind represents the type of swing point.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

// String stringifies the provided swing kind.
func (k SwingKind) String() string {
	switch k {
	case SwingHigh:
		return "swing high"
	case SwingLow:
		return "swing low"
	default:
		return "unknown"
	}
}

// SwingPoint represents a local price extremum.
type SwingPoint struct {
	// Date is the open time of the candle forming the swing point.
	Date  time.Time
	Price float64
	Kind  SwingKind
}

// isWindowHigh checks whether the high at the provided index is the highest high within
// halfWidth candles on either side.
func isWindowHigh(candles []shared.Candlestick, idx int, halfWidth int) bool {
	high := candles[idx].High
	for j := idx - halfWidth; j <= idx+halfWidth; j++ {
		if candles[j].High > high {
			return false
		}
	}

	return true
}

// isWindowLow checks whether the low at the provided index is the lowest low within
// halfWidth candles on either side.
func isWindowLow(candles []shared.Candlestick, idx int, halfWidth int) bool {
	low := candles[idx].Low
	for j := idx - halfWidth; j <= idx+halfWidth; j++ {
		if candles[j].Low < low {
			return false
		}
	}

	return true
}

// FindSwingPoints identifies the swing points of the provided candles under the provided
// fractal width. Swing highs and lows are evaluated independently, an index can produce both.
func FindSwingPoints(candles []shared.Candlestick, fractal shared.Fractal) ([]SwingPoint, error) {
	err := fractal.Validate()
	if err != nil {
		return nil, err
	}

	halfWidth := fractal.HalfWidth()
	points := []SwingPoint{}
	for idx := halfWidth; idx < len(candles)-halfWidth; idx++ {
		candle := candles[idx]
		if isWindowHigh(candles, idx, halfWidth) {
			points = append(points, SwingPoint{Date: candle.OpenTime, Price: candle.High, Kind: SwingHigh})
		}
		if isWindowLow(candles, idx, halfWidth) {
			points = append(points, SwingPoint{Date: candle.OpenTime, Price: candle.Low, Kind: SwingLow})
		}
	}

	return points, nil
}
