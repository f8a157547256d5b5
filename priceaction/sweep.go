package priceaction

import (
	"time"

	"github.com/dnldd/sweep/shared"
)

// SweepKind represents the type of liquidity sweep.
type SweepKind int

const (
	SweepHigh SweepKind = iota
	SweepLow
)

// String stringifies the provided sweep kind.
func (k SweepKind) String() string {
	switch k {
	case SweepHigh:
		return "liquidity sweep high"
	case SweepLow:
		return "liquidity sweep low"
	default:
		return "unknown"
	}
}

// Sweep represents a false breakout past a swing point that closed back inside the range.
type Sweep struct {
	SweptDate  time.Time
	SweptPrice float64
	SweptKind  SwingKind
	// Date is the close time of the confirming candle.
	Date  time.Time
	Price float64
	Kind  SweepKind
}

// findSweep checks the candles following the provided swing point for a liquidity sweep.
// Only the first candle breaching the swing price is considered.
func findSweep(candles []shared.Candlestick, swing SwingPoint) *Sweep {
	subsequent := shared.After(candles, swing.Date)

	for idx := range subsequent {
		candle := subsequent[idx]

		switch swing.Kind {
		case SwingHigh:
			if candle.High <= swing.Price {
				continue
			}
			if candle.Close >= swing.Price {
				// The breach held, not a sweep.
				return nil
			}

			return &Sweep{
				SweptDate:  swing.Date,
				SweptPrice: swing.Price,
				SweptKind:  swing.Kind,
				Date:       candle.CloseTime,
				Price:      candle.High,
				Kind:       SweepHigh,
			}

		case SwingLow:
			if candle.Low >= swing.Price {
				continue
			}
			if candle.Close <= swing.Price {
				return nil
			}

			return &Sweep{
				SweptDate:  swing.Date,
				SweptPrice: swing.Price,
				SweptKind:  swing.Kind,
				Date:       candle.CloseTime,
				Price:      candle.Low,
				Kind:       SweepLow,
			}

		default:
			return nil
		}
	}

	return nil
}

// FindLiquiditySweeps identifies liquidity sweeps of the provided swing points. Each swing
// point yields at most one sweep, sweeps are returned in swing point order.
func FindLiquiditySweeps(candles []shared.Candlestick, swings []SwingPoint) []Sweep {
	sweeps := []Sweep{}
	for idx := range swings {
		sweep := findSweep(candles, swings[idx])
		if sweep != nil {
			sweeps = append(sweeps, *sweep)
		}
	}

	return sweeps
}

// DedupeSweeps drops sweeps sharing a sweep price with an earlier sweep, swing points
// breached at an identical price are treated as one liquidity pool.
func DedupeSweeps(sweeps []Sweep) []Sweep {
	seen := make(map[float64]struct{}, len(sweeps))
	set := make([]Sweep, 0, len(sweeps))
	for idx := range sweeps {
		sweep := sweeps[idx]
		if _, ok := seen[sweep.Price]; ok {
			continue
		}

		seen[sweep.Price] = struct{}{}
		set = append(set, sweep)
	}

	return set
}
