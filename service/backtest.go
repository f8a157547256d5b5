package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dnldd/sweep/engine"
	"github.com/dnldd/sweep/fetch"
	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/atomic"
)

const (
	// maxWorkers is the maximum number of concurrent backtest runs.
	maxWorkers = 8
)

// ReportStorer defines the requirements for storing backtest reports.
type ReportStorer interface {
	// PersistReport stores the provided backtest report.
	PersistReport(ctx context.Context, report *engine.Report) error
}

// BacktestConfig represents the configuration struct for the backtest service.
type BacktestConfig struct {
	// Market is the backtested market.
	Market string
	// Start is the start of the backtested window.
	Start time.Time
	// End is the end of the backtested window, a zero end is unbounded.
	End time.Time
	// Timeframes are the higher and lower timeframe pairs backtested.
	Timeframes []shared.TimeframePair
	// Coefficients are the reward coefficients backtested per timeframe pair.
	Coefficients []float64
	// Fractal is the swing point fractal width.
	Fractal shared.Fractal
	// StopLoss is the source of the stop loss level.
	StopLoss shared.StopLossSource
	// ExcludeCrossing skips entries whose break of structure lies beyond the sweep price.
	ExcludeCrossing bool
	// Fetcher is the market data source.
	Fetcher shared.CandleFetcher
	// Store persists backtest reports, optional.
	Store ReportStorer
	// OutputDir is the directory trade csv files are written to, optional.
	OutputDir string
	// Summary is where the run summary table is rendered, optional.
	Summary io.Writer
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("backtest market cannot be an empty string"))
	}
	if len(cfg.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframe pairs provided"))
	}
	if len(cfg.Coefficients) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no reward coefficients provided"))
	}
	for _, coefficient := range cfg.Coefficients {
		if coefficient <= 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: %v", engine.ErrInvalidCoefficient, coefficient))
		}
	}
	if !cfg.End.IsZero() && !cfg.End.After(cfg.Start) {
		errs = errors.Join(errs, fmt.Errorf("backtest end must be after its start"))
	}
	err := cfg.Fractal.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	err = cfg.StopLoss.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("fetcher cannot be nil"))
	}

	return errs
}

// Backtest evaluates a grid of backtest runs over a market window.
type Backtest struct {
	cfg          *BacktestConfig
	fetchManager *fetch.Manager
	logger       *zerolog.Logger
	workers      chan struct{}
	completed    *atomic.Int32
	skipped      *atomic.Int32
}

// NewBacktest initializes a new backtest service.
func NewBacktest(cfg *BacktestConfig) (*Backtest, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating backtest config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "sweep").Logger()

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Fetcher: cfg.Fetcher,
		Market:  cfg.Market,
		Start:   cfg.Start,
		End:     cfg.End,
		Logger:  &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	service := &Backtest{
		cfg:          cfg,
		fetchManager: fetchMgr,
		logger:       &logger,
		workers:      make(chan struct{}, maxWorkers),
		completed:    atomic.NewInt32(0),
		skipped:      atomic.NewInt32(0),
	}

	return service, nil
}

// grid returns the backtest runs of the configured timeframe pairs and coefficients, ordered
// by timeframe pair then coefficient.
func (b *Backtest) grid() []engine.BacktestConfig {
	runs := make([]engine.BacktestConfig, 0, len(b.cfg.Timeframes)*len(b.cfg.Coefficients))
	for _, pair := range b.cfg.Timeframes {
		for _, coefficient := range b.cfg.Coefficients {
			runs = append(runs, engine.BacktestConfig{
				Market:          b.cfg.Market,
				Timeframes:      pair,
				Fractal:         b.cfg.Fractal,
				StopLoss:        b.cfg.StopLoss,
				Coefficient:     coefficient,
				ExcludeCrossing: b.cfg.ExcludeCrossing,
			})
		}
	}

	return runs
}

// timeframes returns the distinct timeframes of the configured timeframe pairs.
func (b *Backtest) timeframes() []shared.Timeframe {
	seen := make(map[shared.Timeframe]struct{})
	set := []shared.Timeframe{}
	for _, pair := range b.cfg.Timeframes {
		for _, timeframe := range []shared.Timeframe{pair.Higher, pair.Lower} {
			if _, ok := seen[timeframe]; ok {
				continue
			}
			seen[timeframe] = struct{}{}
			set = append(set, timeframe)
		}
	}

	return set
}

// evaluate runs a single backtest over the cached candles of its timeframe pair.
func (b *Backtest) evaluate(run engine.BacktestConfig) (*engine.Report, error) {
	htf, ok := b.fetchManager.Candles(run.Timeframes.Higher)
	if !ok {
		return nil, fmt.Errorf("no %s candles fetched", run.Timeframes.Higher.String())
	}
	ltf, ok := b.fetchManager.Candles(run.Timeframes.Lower)
	if !ok {
		return nil, fmt.Errorf("no %s candles fetched", run.Timeframes.Lower.String())
	}

	engineLogger := b.logger.With().Str("component", "engine").
		Str("timeframes", run.Timeframes.String()).Float64("coefficient", run.Coefficient).Logger()
	eng, err := engine.NewEngine(&engine.EngineConfig{
		Backtest: run,
		Logger:   engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return eng.Run(htf, ltf)
}

// Progress returns the number of completed and skipped runs of the latest Run call.
func (b *Backtest) Progress() (int32, int32) {
	return b.completed.Load(), b.skipped.Load()
}

// Run fetches the backtested window once per timeframe and evaluates every run of the grid
// concurrently. Reports are returned in grid order. Cancelling the provided context stops
// scheduling further runs.
func (b *Backtest) Run(ctx context.Context) ([]*engine.Report, error) {
	b.completed.Store(0)
	b.skipped.Store(0)

	err := b.fetchManager.FetchTimeframes(ctx, b.timeframes())
	if err != nil {
		return nil, fmt.Errorf("fetching market data: %w", err)
	}

	runs := b.grid()
	reports := make([]*engine.Report, len(runs))

	var wg sync.WaitGroup
	var errMtx sync.Mutex
	var errs error

schedule:
	for idx := range runs {
		if ctx.Err() != nil {
			b.skipped.Add(int32(len(runs) - idx))
			break
		}

		select {
		case <-ctx.Done():
			b.skipped.Add(int32(len(runs) - idx))
			break schedule
		case b.workers <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer func() {
				<-b.workers
				wg.Done()
			}()

			report, err := b.evaluate(runs[idx])
			if err != nil {
				errMtx.Lock()
				errs = errors.Join(errs, fmt.Errorf("backtesting %s (%s, coefficient %v): %w",
					runs[idx].Market, runs[idx].Timeframes.String(), runs[idx].Coefficient, err))
				errMtx.Unlock()
				return
			}

			reports[idx] = report
			b.completed.Inc()
		}(idx)
	}

	wg.Wait()

	if errs != nil {
		return nil, errs
	}
	if ctx.Err() != nil {
		completed, skipped := b.Progress()
		return nil, fmt.Errorf("backtest cancelled after %d runs, %d skipped: %w", completed, skipped, ctx.Err())
	}

	err = b.publish(ctx, reports)
	if err != nil {
		return nil, err
	}

	b.logger.Info().Msgf("backtest for %s done, %d runs evaluated", b.cfg.Market, len(reports))

	return reports, nil
}

// publish exports, persists and renders the provided reports as configured.
func (b *Backtest) publish(ctx context.Context, reports []*engine.Report) error {
	if b.cfg.OutputDir != "" {
		for _, report := range reports {
			path, err := ExportCSV(b.cfg.OutputDir, report)
			if err != nil {
				return fmt.Errorf("exporting trades: %w", err)
			}

			b.logger.Info().Msgf("wrote %d trades to %s", len(report.Trades), path)
		}
	}

	if b.cfg.Store != nil {
		for _, report := range reports {
			err := b.cfg.Store.PersistReport(ctx, report)
			if err != nil {
				return fmt.Errorf("persisting report: %w", err)
			}
		}
	}

	if b.cfg.Summary != nil {
		RenderSummary(b.cfg.Summary, reports)
	}

	return nil
}
