package position

import (
	"math"

	"github.com/dnldd/sweep/shared"
	"github.com/montanaflynn/stats"
)

// Summary represents the aggregate performance of a set of simulated trades.
type Summary struct {
	TradeCount    int
	WinCount      int
	LoseCount     int
	WinRate       float64
	LongWinRate   float64
	ShortWinRate  float64
	MaxWinStreak  int
	MaxLoseStreak int
	// CumulativeProfit is expressed in units of risk, a win earns the coefficient and a
	// loss costs one unit.
	CumulativeProfit float64
	Coefficient      float64
	// Expectancy is the mean risk multiple per trade.
	Expectancy        float64
	MedianHoldMinutes float64
}

// winRate returns the fraction of winning trades, optionally filtered by direction.
func winRate(trades []*Trade, direction *shared.Direction) float64 {
	var count, wins int
	for idx := range trades {
		trade := trades[idx]
		if direction != nil && trade.Direction != *direction {
			continue
		}

		count++
		if trade.Result == Win {
			wins++
		}
	}

	if count == 0 {
		return 0
	}

	return float64(wins) / float64(count)
}

// longestStreak returns the longest run of consecutive trades with the provided result.
func longestStreak(trades []*Trade, result Result) int {
	var longest, current int
	for idx := range trades {
		if trades[idx].Result != result {
			current = 0
			continue
		}

		current++
		longest = max(longest, current)
	}

	return longest
}

// Summarize aggregates the performance of the provided trades, in entry order, for the
// provided reward coefficient.
func Summarize(trades []*Trade, coefficient float64) Summary {
	long := shared.Long
	short := shared.Short

	summary := Summary{
		TradeCount:    len(trades),
		WinRate:       winRate(trades, nil),
		LongWinRate:   winRate(trades, &long),
		ShortWinRate:  winRate(trades, &short),
		MaxWinStreak:  longestStreak(trades, Win),
		MaxLoseStreak: longestStreak(trades, Lose),
		Coefficient:   coefficient,
	}

	multiples := make([]float64, 0, len(trades))
	holds := make([]float64, 0, len(trades))
	for idx := range trades {
		trade := trades[idx]
		switch trade.Result {
		case Win:
			summary.WinCount++
			multiples = append(multiples, coefficient)
		case Lose:
			summary.LoseCount++
			multiples = append(multiples, -1)
		}

		holds = append(holds, trade.HoldDuration().Minutes())
	}

	summary.CumulativeProfit = float64(summary.WinCount)*coefficient - float64(summary.LoseCount)

	// Both return an error only for empty input, which leaves the zero value.
	if expectancy, err := stats.Mean(multiples); err == nil {
		summary.Expectancy = expectancy
	}
	if median, err := stats.Median(holds); err == nil {
		summary.MedianHoldMinutes = median
	}

	return summary
}

// Percent converts the provided rate to a rounded percentage.
func Percent(rate float64) int {
	return int(math.Round(rate * 100))
}
