package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

var baseTime = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

// hourlyCandles builds n consecutive hourly candles.
func hourlyCandles(n int) []Candlestick {
	candles := make([]Candlestick, n)
	for idx := range candles {
		openTime := baseTime.Add(time.Hour * time.Duration(idx))
		candles[idx] = Candlestick{
			Close:     float64(idx),
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
			Timeframe: OneHour,
		}
	}

	return candles
}

func TestSentimentString(t *testing.T) {
	assert.Equal(t, Neutral.String(), "neutral")
	assert.Equal(t, Bullish.String(), "bullish")
	assert.Equal(t, Bearish.String(), "bearish")
	assert.Equal(t, Sentiment(9).String(), "unknown")
}

func TestCandleWindows(t *testing.T) {
	candles := hourlyCandles(5)

	tests := []struct {
		name  string
		set   []Candlestick
		first int
		count int
	}{
		{
			name:  "after the first close time",
			set:   After(candles, candles[0].CloseTime),
			first: 1,
			count: 4,
		},
		{
			name:  "after an open time excludes that candle",
			set:   After(candles, candles[2].OpenTime),
			first: 3,
			count: 2,
		},
		{
			name:  "up to an open time includes that candle",
			set:   UpTo(candles, candles[2].OpenTime),
			first: 0,
			count: 3,
		},
		{
			name:  "up to a time past the series",
			set:   UpTo(candles, baseTime.Add(time.Hour*24)),
			first: 0,
			count: 5,
		},
		{
			name:  "between inclusive bounds",
			set:   Between(candles, candles[1].OpenTime, candles[3].OpenTime),
			first: 1,
			count: 3,
		},
		{
			name:  "between with an unbounded end",
			set:   Between(candles, candles[3].OpenTime, time.Time{}),
			first: 3,
			count: 2,
		},
	}

	for _, test := range tests {
		if len(test.set) != test.count {
			t.Errorf("%s: expected %d candles, got %d", test.name, test.count, len(test.set))
			continue
		}
		if !test.set[0].OpenTime.Equal(candles[test.first].OpenTime) {
			t.Errorf("%s: expected first candle at index %d", test.name, test.first)
		}
	}

	// Ensure empty windows are handled.
	assert.Equal(t, len(After(candles, candles[4].OpenTime)), 0)
	assert.Equal(t, len(UpTo(candles, baseTime.Add(-time.Hour))), 0)
	assert.Equal(t, len(After(nil, baseTime)), 0)
}

func TestParseCandlesticks(t *testing.T) {
	data := `[
		{"openTime":1719792000000,"closeTime":1719795599999,"open":10,"high":15,"low":8,"close":12,"volume":5},
		{"openTime":1719795600000,"open":12,"high":13,"low":11,"close":11.5,"volume":3}
	]`

	// Ensure candlesticks data can be parsed.
	candles, err := ParseCandlesticks(gjson.Parse(data).Array(), "BTCUSDT", OneHour, nil)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Open, float64(10))
	assert.Equal(t, candles[0].Close, float64(12))
	assert.Equal(t, candles[0].High, float64(15))
	assert.Equal(t, candles[0].Low, float64(8))
	assert.Equal(t, candles[0].Volume, float64(5))
	assert.Equal(t, candles[0].Market, "BTCUSDT")
	assert.Equal(t, candles[0].Timeframe, OneHour)
	assert.True(t, candles[0].OpenTime.Equal(baseTime))

	// Ensure a missing close time is derived from the timeframe.
	assert.True(t, candles[1].CloseTime.Equal(candles[1].OpenTime.Add(time.Hour-time.Millisecond)))

	// Ensure timestamps are converted to the provided location.
	loc := time.FixedZone("UTC+1", 3600)
	candles, err = ParseCandlesticks(gjson.Parse(data).Array(), "BTCUSDT", OneHour, loc)
	assert.NoError(t, err)
	assert.Equal(t, candles[0].OpenTime.Hour(), 1)

	// Ensure candles without open times are rejected.
	_, err = ParseCandlesticks(gjson.Parse(`[{"open":1}]`).Array(), "BTCUSDT", OneHour, nil)
	assert.Error(t, err)

	// Ensure out of order candles are rejected.
	unordered := `[{"openTime":1719795600000},{"openTime":1719792000000}]`
	_, err = ParseCandlesticks(gjson.Parse(unordered).Array(), "BTCUSDT", OneHour, nil)
	assert.Error(t, err)

	duplicated := `[{"openTime":1719792000000},{"openTime":1719792000000}]`
	_, err = ParseCandlesticks(gjson.Parse(duplicated).Array(), "BTCUSDT", OneHour, nil)
	assert.Error(t, err)
}
