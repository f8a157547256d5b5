package shared

import (
	"context"
	"time"
)

// CandleFetcher defines the requirements for fetching historical market data.
type CandleFetcher interface {
	// FetchCandles fetches the candles of the provided market and timeframe opening within
	// [start, end]. A zero end fetches up to the latest available candle.
	FetchCandles(ctx context.Context, market string, timeframe Timeframe, start time.Time, end time.Time) ([]Candlestick, error)
}
