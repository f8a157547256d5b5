package shared

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open      float64
	Low       float64
	High      float64
	Close     float64
	Volume    float64
	OpenTime  time.Time
	CloseTime time.Time

	// Metadata.
	Market    string
	Timeframe Timeframe
}

// After returns the candles opening strictly after the provided time. The returned slice
// shares the backing array of the provided candles.
func After(candles []Candlestick, t time.Time) []Candlestick {
	for idx := range candles {
		if candles[idx].OpenTime.After(t) {
			return candles[idx:]
		}
	}

	return nil
}

// UpTo returns the candles opening at or before the provided time. The returned slice
// shares the backing array of the provided candles.
func UpTo(candles []Candlestick, t time.Time) []Candlestick {
	for idx := range candles {
		if candles[idx].OpenTime.After(t) {
			return candles[:idx]
		}
	}

	return candles
}

// Between returns the candles opening within [start, end]. A zero end is unbounded.
func Between(candles []Candlestick, start time.Time, end time.Time) []Candlestick {
	set := make([]Candlestick, 0, len(candles))
	for idx := range candles {
		candle := candles[idx]
		if candle.OpenTime.Before(start) {
			continue
		}
		if !end.IsZero() && candle.OpenTime.After(end) {
			continue
		}

		set = append(set, candle)
	}

	return set
}

// ParseCandlesticks parses candlesticks from the provided json data. Timestamps are
// expected as unix milliseconds and are converted to the provided location.
func ParseCandlesticks(data []gjson.Result, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	if loc == nil {
		loc = time.UTC
	}

	candles := make([]Candlestick, 0, len(data))
	for idx := range data {
		openTime := data[idx].Get("openTime")
		if !openTime.Exists() {
			return nil, fmt.Errorf("candlestick at index %d has no open time", idx)
		}

		candle := Candlestick{
			Open:      data[idx].Get("open").Float(),
			Low:       data[idx].Get("low").Float(),
			High:      data[idx].Get("high").Float(),
			Close:     data[idx].Get("close").Float(),
			Volume:    data[idx].Get("volume").Float(),
			OpenTime:  time.UnixMilli(openTime.Int()).In(loc),
			Market:    market,
			Timeframe: timeframe,
		}

		closeTime := data[idx].Get("closeTime")
		switch {
		case closeTime.Exists():
			candle.CloseTime = time.UnixMilli(closeTime.Int()).In(loc)
		default:
			candle.CloseTime = candle.OpenTime.Add(timeframe.Duration() - time.Millisecond)
		}

		if len(candles) > 0 && !candle.OpenTime.After(candles[len(candles)-1].OpenTime) {
			return nil, fmt.Errorf("candlestick open times are not strictly increasing at index %d", idx)
		}

		candles = append(candles, candle)
	}

	return candles, nil
}
