package priceaction

import (
	"time"

	"github.com/dnldd/sweep/shared"
)

// FindSwingLevel returns the most recent swing point of the provided kind formed at or
// before the break of structure date and beyond the break of structure price: above it for
// swing highs, below it for swing lows. A nil swing point is returned when none qualify.
func FindSwingLevel(candles []shared.Candlestick, bosDate time.Time, bosPrice float64, kind SwingKind, fractal shared.Fractal) (*SwingPoint, error) {
	points, err := FindSwingPoints(shared.UpTo(candles, bosDate), fractal)
	if err != nil {
		return nil, err
	}

	for idx := len(points) - 1; idx >= 0; idx-- {
		point := points[idx]
		if point.Kind != kind {
			continue
		}

		switch {
		case kind == SwingHigh && point.Price > bosPrice:
			return &point, nil
		case kind == SwingLow && point.Price < bosPrice:
			return &point, nil
		}
	}

	return nil, nil
}
