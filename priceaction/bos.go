package priceaction

import (
	"time"

	"github.com/dnldd/sweep/shared"
)

// BreakOfStructure represents a close beyond a previously tracked local extremum.
type BreakOfStructure struct {
	// Date is the open time of the candle after the breaking candle.
	Date time.Time
	// Price is the broken extremum's price.
	Price float64
	// Close is the breaking candle's close.
	Close     float64
	Sentiment shared.Sentiment
}

// isLocalHigh checks whether the high at the provided index is strictly higher than both
// adjacent highs.
func isLocalHigh(candles []shared.Candlestick, idx int) bool {
	if idx < 1 || idx > len(candles)-2 {
		return false
	}

	return candles[idx].High > candles[idx-1].High && candles[idx].High > candles[idx+1].High
}

// isLocalLow checks whether the low at the provided index is strictly lower than both
// adjacent lows.
func isLocalLow(candles []shared.Candlestick, idx int) bool {
	if idx < 1 || idx > len(candles)-2 {
		return false
	}

	return candles[idx].Low < candles[idx-1].Low && candles[idx].Low < candles[idx+1].Low
}

// FindBreakOfStructure returns the first break of structure of the provided sentiment.
// A bullish break is a close above the most recent local high, a bearish break is a close
// below the most recent local low. The tracked extremum uses a fixed one candle window on
// either side regardless of the configured fractal width.
func FindBreakOfStructure(candles []shared.Candlestick, sentiment shared.Sentiment) *BreakOfStructure {
	var tracked *shared.Candlestick

	for idx := 0; idx < len(candles)-1; idx++ {
		candle := candles[idx]

		if tracked != nil {
			switch {
			case sentiment == shared.Bullish && candle.Close > tracked.High:
				return &BreakOfStructure{
					Date:      candles[idx+1].OpenTime,
					Price:     tracked.High,
					Close:     candle.Close,
					Sentiment: sentiment,
				}
			case sentiment == shared.Bearish && candle.Close < tracked.Low:
				return &BreakOfStructure{
					Date:      candles[idx+1].OpenTime,
					Price:     tracked.Low,
					Close:     candle.Close,
					Sentiment: sentiment,
				}
			}
		}

		switch sentiment {
		case shared.Bullish:
			if isLocalHigh(candles, idx) {
				tracked = &candles[idx]
			}
		case shared.Bearish:
			if isLocalLow(candles, idx) {
				tracked = &candles[idx]
			}
		default:
			return nil
		}
	}

	return nil
}
