package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dnldd/sweep/engine"
	"github.com/dnldd/sweep/fetch"
	"github.com/dnldd/sweep/position"
	"github.com/dnldd/sweep/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

type storeMock struct {
	mtx     sync.Mutex
	reports []*engine.Report
	err     error
}

func (s *storeMock) PersistReport(ctx context.Context, report *engine.Report) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.err != nil {
		return s.err
	}

	s.reports = append(s.reports, report)
	return nil
}

type failingFetcher struct{}

func (f *failingFetcher) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	return nil, errors.New("exchange unavailable")
}

func historicData(t *testing.T) *fetch.HistoricData {
	t.Helper()

	data, err := fetch.NewHistoricData(&fetch.HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Location: time.UTC,
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	return data
}

func testConfig(t *testing.T) *BacktestConfig {
	return &BacktestConfig{
		Market:          "BTCUSDT",
		Timeframes:      []shared.TimeframePair{{Higher: shared.OneHour, Lower: shared.FifteenMinute}},
		Coefficients:    []float64{1, 2},
		Fractal:         shared.FractalThree,
		StopLoss:        shared.HigherTimeframeFractal,
		ExcludeCrossing: true,
		Fetcher:         historicData(t),
	}
}

func TestBacktestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(cfg *BacktestConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid config returns nil",
			modify:  func(cfg *BacktestConfig) {},
			wantErr: false,
		},
		{
			name:        "non-positive coefficient",
			modify:      func(cfg *BacktestConfig) { cfg.Coefficients = []float64{1, -2} },
			wantErr:     true,
			errContains: []string{engine.ErrInvalidCoefficient.Error()},
		},
		{
			name: "end before start",
			modify: func(cfg *BacktestConfig) {
				cfg.Start = time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
				cfg.End = cfg.Start.Add(-time.Hour)
			},
			wantErr:     true,
			errContains: []string{"backtest end must be after its start"},
		},
		{
			name: "multiple missing fields",
			modify: func(cfg *BacktestConfig) {
				*cfg = BacktestConfig{}
			},
			wantErr: true,
			errContains: []string{
				"backtest market cannot be an empty string",
				"no timeframe pairs provided",
				"no reward coefficients provided",
				shared.ErrUnsupportedFractal.Error(),
				"fetcher cannot be nil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				for _, substr := range tt.errContains {
					assert.True(t, strings.Contains(err.Error(), substr))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBacktestGrid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timeframes = []shared.TimeframePair{
		{Higher: shared.FourHour, Lower: shared.OneHour},
		{Higher: shared.OneHour, Lower: shared.FifteenMinute},
	}
	cfg.Coefficients = []float64{1, 1.5, 3}

	backtest, err := NewBacktest(cfg)
	assert.NoError(t, err)

	// Ensure runs are ordered by timeframe pair then coefficient.
	runs := backtest.grid()
	assert.Equal(t, len(runs), 6)
	for idx, run := range runs {
		assert.Equal(t, run.Timeframes, cfg.Timeframes[idx/3])
		assert.Equal(t, run.Coefficient, cfg.Coefficients[idx%3])
		assert.Equal(t, run.Fractal, cfg.Fractal)
		assert.Equal(t, run.StopLoss, cfg.StopLoss)
		assert.Equal(t, run.ExcludeCrossing, cfg.ExcludeCrossing)
	}

	// Ensure shared timeframes are fetched once.
	want := []shared.Timeframe{shared.FourHour, shared.OneHour, shared.FifteenMinute}
	if diff := cmp.Diff(want, backtest.timeframes()); diff != "" {
		t.Errorf("unexpected timeframes (-want +got):\n%s", diff)
	}
}

func TestBacktestRun(t *testing.T) {
	cfg := testConfig(t)
	store := &storeMock{}
	var summary bytes.Buffer
	cfg.Store = store
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Summary = &summary

	backtest, err := NewBacktest(cfg)
	assert.NoError(t, err)

	reports, err := backtest.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(reports), 2)

	// Ensure reports are returned in grid order.
	assert.Equal(t, reports[0].Config.Coefficient, float64(1))
	assert.Equal(t, reports[1].Config.Coefficient, float64(2))

	// Ensure the swept swing high yields a winning short at a coefficient of one, while the
	// doubled target is never reached.
	assert.Equal(t, reports[0].Sweeps, 1)
	assert.Equal(t, len(reports[0].Trades), 1)
	trade := reports[0].Trades[0]
	assert.Equal(t, trade.Direction, shared.Short)
	assert.Equal(t, trade.Result, position.Win)
	assert.Equal(t, trade.EntryPrice, float64(100))
	assert.Equal(t, trade.StopLoss, float64(112))
	assert.Equal(t, trade.TakeProfit, float64(88))
	assert.Equal(t, len(reports[1].Trades), 0)

	completed, skipped := backtest.Progress()
	assert.Equal(t, completed, int32(2))
	assert.Equal(t, skipped, int32(0))

	// Ensure every report is persisted.
	assert.Equal(t, len(store.reports), 2)

	// Ensure every report is exported.
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "BTCUSDT_1h_15m_1.csv"))
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, len(lines), 2)
	assert.True(t, strings.Contains(lines[1], "short"))
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "BTCUSDT_1h_15m_2.csv"))
	assert.NoError(t, err)

	// Ensure the summary table is rendered.
	assert.True(t, strings.Contains(summary.String(), "BTCUSDT"))
	assert.True(t, strings.Contains(summary.String(), "100%"))

	// Ensure progress only counts the latest run of the grid.
	reports, err = backtest.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(reports), 2)
	completed, skipped = backtest.Progress()
	assert.Equal(t, completed, int32(2))
	assert.Equal(t, skipped, int32(0))
	assert.Equal(t, len(store.reports), 4)
}

func TestExportCSV(t *testing.T) {
	report := &engine.Report{
		Config: engine.BacktestConfig{
			Market:      "BTCUSDT",
			Timeframes:  shared.TimeframePair{Higher: shared.OneHour, Lower: shared.FifteenMinute},
			Coefficient: 1,
		},
	}

	// Ensure an empty report writes a closed file holding only the header.
	dir := filepath.Join(t.TempDir(), "out")
	path, err := ExportCSV(dir, report)
	assert.NoError(t, err)
	assert.Equal(t, path, filepath.Join(dir, "BTCUSDT_1h_15m_1.csv"))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, len(strings.Split(strings.TrimSpace(string(data)), "\n")), 1)

	// Ensure an unwritable output directory is reported.
	blocked := filepath.Join(t.TempDir(), "file")
	err = os.WriteFile(blocked, []byte("x"), 0o600)
	assert.NoError(t, err)
	_, err = ExportCSV(blocked, report)
	assert.Error(t, err)
}

func TestBacktestRunErrors(t *testing.T) {
	// Ensure fetch failures abort the backtest.
	cfg := testConfig(t)
	cfg.Fetcher = &failingFetcher{}
	backtest, err := NewBacktest(cfg)
	assert.NoError(t, err)
	_, err = backtest.Run(context.Background())
	assert.Error(t, err)

	// Ensure missing timeframes in the data source abort the backtest.
	cfg = testConfig(t)
	cfg.Timeframes = []shared.TimeframePair{{Higher: shared.FourHour, Lower: shared.OneHour}}
	backtest, err = NewBacktest(cfg)
	assert.NoError(t, err)
	_, err = backtest.Run(context.Background())
	assert.Error(t, err)

	// Ensure persistence failures are surfaced.
	cfg = testConfig(t)
	cfg.Store = &storeMock{err: errors.New("database unavailable")}
	backtest, err = NewBacktest(cfg)
	assert.NoError(t, err)
	_, err = backtest.Run(context.Background())
	assert.Error(t, err)

	// Ensure a cancelled context stops the backtest.
	cfg = testConfig(t)
	backtest, err = NewBacktest(cfg)
	assert.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = backtest.Run(ctx)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReportFileName(t *testing.T) {
	cfg := &engine.BacktestConfig{
		Market:      "BTCUSDT",
		Timeframes:  shared.TimeframePair{Higher: shared.FourHour, Lower: shared.FiveMinute},
		Coefficient: 2.5,
	}
	assert.Equal(t, reportFileName(cfg), "BTCUSDT_4h_5m_2.5.csv")
}
