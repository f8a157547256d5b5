package engine

import (
	"fmt"

	"github.com/dnldd/sweep/position"
	"github.com/dnldd/sweep/priceaction"
	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
)

// EngineConfig represents the engine configuration.
type EngineConfig struct {
	// Backtest is the backtest run configuration.
	Backtest BacktestConfig
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// setup describes how a liquidity sweep of a given kind is traded.
type setup struct {
	direction shared.Direction
	// sentiment is the break of structure confirming the sweep.
	sentiment shared.Sentiment
	// levelKind is the swing point kind protecting the entry.
	levelKind priceaction.SwingKind
	// crossesSweep reports whether the break of structure price lies beyond the sweep price.
	crossesSweep func(bosPrice float64, sweepPrice float64) bool
	// protects reports whether the stop loss sits on the protective side of the entry.
	protects func(stopLoss float64, entryPrice float64) bool
}

// setups maps each sweep kind to how it is traded.
var setups = map[priceaction.SweepKind]setup{
	priceaction.SweepHigh: {
		direction:    shared.Short,
		sentiment:    shared.Bearish,
		levelKind:    priceaction.SwingHigh,
		crossesSweep: func(bosPrice, sweepPrice float64) bool { return bosPrice > sweepPrice },
		protects:     func(stopLoss, entryPrice float64) bool { return stopLoss > entryPrice },
	},
	priceaction.SweepLow: {
		direction:    shared.Long,
		sentiment:    shared.Bullish,
		levelKind:    priceaction.SwingLow,
		crossesSweep: func(bosPrice, sweepPrice float64) bool { return bosPrice < sweepPrice },
		protects:     func(stopLoss, entryPrice float64) bool { return stopLoss < entryPrice },
	},
}

// Report represents the outcome of a backtest run.
type Report struct {
	Config  BacktestConfig
	Sweeps  int
	Trades  []*position.Trade
	Summary position.Summary
}

// Engine turns liquidity sweeps into simulated trades.
type Engine struct {
	cfg *EngineConfig
}

// NewEngine initializes a new engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine config cannot be nil")
	}

	err := cfg.Backtest.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating backtest config: %w", err)
	}

	return &Engine{cfg: cfg}, nil
}

// stopLoss returns the stop loss level for the provided sweep and break of structure. A
// false flag is returned when no qualifying level exists.
func (e *Engine) stopLoss(s setup, sweep *priceaction.Sweep, bos *priceaction.BreakOfStructure, htf []shared.Candlestick, ltf []shared.Candlestick) (float64, bool, error) {
	var candles []shared.Candlestick

	switch e.cfg.Backtest.StopLoss {
	case shared.HigherTimeframeFractal:
		candles = htf
	case shared.LowerTimeframeFractal:
		candles = ltf
	case shared.SweepLevel:
		return sweep.Price, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %d", shared.ErrUnsupportedStopLoss, e.cfg.Backtest.StopLoss)
	}

	level, err := priceaction.FindSwingLevel(candles, bos.Date, bos.Price, s.levelKind, e.cfg.Backtest.Fractal)
	if err != nil {
		return 0, false, fmt.Errorf("finding swing level: %w", err)
	}
	if level == nil {
		return 0, false, nil
	}

	return level.Price, true, nil
}

// evaluateSweep attempts to derive a trade from the provided sweep. A nil trade is
// returned when the sweep does not lead to a resolved trade.
func (e *Engine) evaluateSweep(sweep *priceaction.Sweep, htf []shared.Candlestick, ltf []shared.Candlestick) (*position.Trade, error) {
	s, ok := setups[sweep.Kind]
	if !ok {
		return nil, fmt.Errorf("no setup for sweep kind: %s", sweep.Kind.String())
	}

	logger := e.cfg.Logger.With().Str("sweep", sweep.Kind.String()).
		Time("sweepDate", sweep.Date).Float64("sweepPrice", sweep.Price).Logger()

	bos := priceaction.FindBreakOfStructure(shared.After(ltf, sweep.Date), s.sentiment)
	if bos == nil {
		logger.Debug().Msg("no break of structure after sweep")
		return nil, nil
	}

	if e.cfg.Backtest.ExcludeCrossing && s.crossesSweep(bos.Price, sweep.Price) {
		logger.Debug().Msgf("break of structure price %f crosses sweep price", bos.Price)
		return nil, nil
	}

	stopLoss, found, err := e.stopLoss(s, sweep, bos, htf, ltf)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Debug().Msg("no swing level qualifies as stop loss")
		return nil, nil
	}
	if !s.protects(stopLoss, bos.Close) {
		logger.Debug().Msgf("stop loss %f does not protect entry %f", stopLoss, bos.Close)
		return nil, nil
	}

	takeProfit := position.TakeProfit(bos.Close, stopLoss, e.cfg.Backtest.Coefficient)
	outcome := position.Simulate(shared.After(ltf, bos.Date), s.direction, takeProfit, stopLoss)
	if outcome == nil {
		logger.Debug().Msg("neither take profit nor stop loss touched")
		return nil, nil
	}

	trade, err := position.NewTrade(&position.TradeParams{
		Market:     e.cfg.Backtest.Market,
		Timeframes: e.cfg.Backtest.Timeframes,
		Direction:  s.direction,
		SweepDate:  sweep.Date,
		SweepPrice: sweep.Price,
		BOSPrice:   bos.Price,
		EntryDate:  bos.Date,
		EntryPrice: bos.Close,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
	}, outcome)
	if err != nil {
		return nil, fmt.Errorf("creating trade: %w", err)
	}

	return trade, nil
}

// Run derives trades from the liquidity sweeps of the higher timeframe candles, confirmed
// and simulated on the lower timeframe candles. Trades are returned in sweep order.
func (e *Engine) Run(htf []shared.Candlestick, ltf []shared.Candlestick) (*Report, error) {
	swings, err := priceaction.FindSwingPoints(htf, e.cfg.Backtest.Fractal)
	if err != nil {
		return nil, fmt.Errorf("finding swing points: %w", err)
	}

	sweeps := priceaction.DedupeSweeps(priceaction.FindLiquiditySweeps(htf, swings))

	trades := []*position.Trade{}
	for idx := range sweeps {
		trade, err := e.evaluateSweep(&sweeps[idx], htf, ltf)
		if err != nil {
			return nil, err
		}
		if trade == nil {
			continue
		}

		trades = append(trades, trade)
	}

	report := &Report{
		Config:  e.cfg.Backtest,
		Sweeps:  len(sweeps),
		Trades:  trades,
		Summary: position.Summarize(trades, e.cfg.Backtest.Coefficient),
	}

	e.cfg.Logger.Info().Msgf("backtest %s (%s, coefficient %v) found %d swing points, %d sweeps, %d trades",
		e.cfg.Backtest.Market, e.cfg.Backtest.Timeframes.String(), e.cfg.Backtest.Coefficient,
		len(swings), len(sweeps), len(trades))

	return report, nil
}
