package position

import (
	"fmt"
	"math"
	"time"

	"github.com/dnldd/sweep/shared"
	"github.com/google/uuid"
)

// Result represents the outcome of a simulated trade.
type Result int

const (
	Win Result = iota
	Lose
)

// String stringifies the provided result.
func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Lose:
		return "lose"
	default:
		return "unknown"
	}
}

// Trade represents a simulated market entry derived from a liquidity sweep and the break
// of structure that followed it.
type Trade struct {
	ID         string
	Market     string
	Timeframes shared.TimeframePair
	Direction  shared.Direction
	SweepDate  time.Time
	SweepPrice float64
	BOSPrice   float64
	EntryDate  time.Time
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
	Result     Result
	ResultDate time.Time
}

// TradeParams are the inputs of a simulated trade.
type TradeParams struct {
	Market     string
	Timeframes shared.TimeframePair
	Direction  shared.Direction
	SweepDate  time.Time
	SweepPrice float64
	BOSPrice   float64
	EntryDate  time.Time
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
}

// tradeID generates a deterministic id for a trade from its defining fields.
func tradeID(params *TradeParams) string {
	name := fmt.Sprintf("%s|%s|%s|%d|%d|%v|%v", params.Market, params.Timeframes.String(),
		params.Direction.String(), params.SweepDate.UnixMilli(), params.EntryDate.UnixMilli(),
		params.TakeProfit, params.StopLoss)

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// NewTrade initializes a new trade from the provided parameters and simulated outcome.
func NewTrade(params *TradeParams, outcome *Outcome) (*Trade, error) {
	if params == nil {
		return nil, fmt.Errorf("trade params cannot be nil")
	}
	if outcome == nil {
		return nil, fmt.Errorf("trade outcome cannot be nil")
	}

	switch params.Direction {
	case shared.Long:
		if params.StopLoss >= params.EntryPrice {
			return nil, fmt.Errorf("long stop loss %f must be below entry price %f",
				params.StopLoss, params.EntryPrice)
		}
	case shared.Short:
		if params.StopLoss <= params.EntryPrice {
			return nil, fmt.Errorf("short stop loss %f must be above entry price %f",
				params.StopLoss, params.EntryPrice)
		}
	default:
		return nil, fmt.Errorf("unknown direction for trade: %s", params.Direction.String())
	}

	trade := &Trade{
		ID:         tradeID(params),
		Market:     params.Market,
		Timeframes: params.Timeframes,
		Direction:  params.Direction,
		SweepDate:  params.SweepDate,
		SweepPrice: params.SweepPrice,
		BOSPrice:   params.BOSPrice,
		EntryDate:  params.EntryDate,
		EntryPrice: params.EntryPrice,
		TakeProfit: params.TakeProfit,
		StopLoss:   params.StopLoss,
		Result:     outcome.Result,
		ResultDate: outcome.Date,
	}

	return trade, nil
}

// TakeProfit returns the take profit target for the provided entry and stop loss, placed
// coefficient times the stop loss distance on the opposite side of the entry.
func TakeProfit(entryPrice float64, stopLoss float64, coefficient float64) float64 {
	diff := math.Abs(entryPrice - stopLoss)
	if entryPrice < stopLoss {
		return entryPrice - coefficient*diff
	}

	return entryPrice + coefficient*diff
}

// HoldDuration returns the time between the trade's entry and its result.
func (t *Trade) HoldDuration() time.Duration {
	return t.ResultDate.Sub(t.EntryDate)
}
