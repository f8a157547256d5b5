package position

import (
	"time"

	"github.com/dnldd/sweep/shared"
)

// Outcome represents the resolution of a simulated trade.
type Outcome struct {
	Result Result
	// Date is the open time of the candle that touched the resolving level.
	Date time.Time
}

// Simulate races the take profit against the stop loss through the provided candles and
// returns the first level touched. A candle touching both levels resolves as a loss. A nil
// outcome is returned when neither level is touched.
func Simulate(candles []shared.Candlestick, direction shared.Direction, takeProfit float64, stopLoss float64) *Outcome {
	for idx := range candles {
		candle := candles[idx]

		var hitTarget, hitStop bool
		switch direction {
		case shared.Short:
			hitTarget = candle.Low <= takeProfit
			hitStop = candle.High >= stopLoss
		case shared.Long:
			hitTarget = candle.High >= takeProfit
			hitStop = candle.Low <= stopLoss
		default:
			return nil
		}

		switch {
		case hitStop:
			// The target only wins when touched strictly before the stop.
			return &Outcome{Result: Lose, Date: candle.OpenTime}
		case hitTarget:
			return &Outcome{Result: Win, Date: candle.OpenTime}
		}
	}

	return nil
}
