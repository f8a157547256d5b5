package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers is the maximum number of concurrent fetches.
	maxWorkers = 4
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Fetcher represents the market data source.
	Fetcher shared.CandleFetcher
	// Market is the market fetched.
	Market string
	// Start is the start of the fetched window.
	Start time.Time
	// End is the end of the fetched window, a zero end is unbounded.
	End time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("fetcher cannot be nil"))
	}
	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided"))
	}
	if !cfg.End.IsZero() && !cfg.End.After(cfg.Start) {
		errs = errors.Join(errs, fmt.Errorf("end %s must be after start %s",
			cfg.End.Format(time.RFC3339), cfg.Start.Format(time.RFC3339)))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager fetches and caches the candles of a market window per timeframe.
type Manager struct {
	cfg     *ManagerConfig
	candles map[shared.Timeframe][]shared.Candlestick
	mtx     sync.RWMutex
	workers chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	mgr := &Manager{
		cfg:     cfg,
		candles: make(map[shared.Timeframe][]shared.Candlestick),
		workers: make(chan struct{}, maxWorkers),
	}

	return mgr, nil
}

// Candles returns the cached candles of the provided timeframe.
func (m *Manager) Candles(timeframe shared.Timeframe) ([]shared.Candlestick, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	candles, ok := m.candles[timeframe]
	return candles, ok
}

// fetch fetches and caches the candles of the provided timeframe.
func (m *Manager) fetch(ctx context.Context, timeframe shared.Timeframe) error {
	candles, err := m.cfg.Fetcher.FetchCandles(ctx, m.cfg.Market, timeframe, m.cfg.Start, m.cfg.End)
	if err != nil {
		return fmt.Errorf("fetching %s candles for %s: %w", timeframe.String(), m.cfg.Market, err)
	}

	m.mtx.Lock()
	m.candles[timeframe] = candles
	m.mtx.Unlock()

	return nil
}

// FetchTimeframes ensures the candles of every provided timeframe are cached, fetching each
// uncached timeframe exactly once.
func (m *Manager) FetchTimeframes(ctx context.Context, timeframes []shared.Timeframe) error {
	pending := make(map[shared.Timeframe]struct{}, len(timeframes))
	for _, timeframe := range timeframes {
		if _, ok := m.Candles(timeframe); ok {
			continue
		}
		pending[timeframe] = struct{}{}
	}

	var wg sync.WaitGroup
	var errMtx sync.Mutex
	var errs error

	for timeframe := range pending {
		if ctx.Err() != nil {
			wg.Wait()
			return errors.Join(errs, ctx.Err())
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return errors.Join(errs, ctx.Err())
		case m.workers <- struct{}{}:
		}

		wg.Add(1)
		go func(timeframe shared.Timeframe) {
			defer func() {
				<-m.workers
				wg.Done()
			}()

			err := m.fetch(ctx, timeframe)
			if err != nil {
				errMtx.Lock()
				errs = errors.Join(errs, err)
				errMtx.Unlock()
			}
		}(timeframe)
	}

	wg.Wait()

	return errs
}
