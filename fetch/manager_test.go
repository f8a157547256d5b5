package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dnldd/sweep/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type fetcherMock struct {
	mtx   sync.Mutex
	calls map[shared.Timeframe]int
	err   error
}

func (m *fetcherMock) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	m.mtx.Lock()
	m.calls[timeframe]++
	m.mtx.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	return []shared.Candlestick{{Market: market, Timeframe: timeframe, OpenTime: start}}, nil
}

func TestFetchManagerConfigValidate(t *testing.T) {
	logger := zerolog.New(nil)
	start := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	baseCfg := &ManagerConfig{
		Fetcher: &fetcherMock{},
		Market:  "BTCUSDT",
		Start:   start,
		Logger:  &logger,
	}

	tests := []struct {
		name        string
		modify      func(cfg *ManagerConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid config returns nil",
			modify:  func(cfg *ManagerConfig) {},
			wantErr: false,
		},
		{
			name:        "end before start",
			modify:      func(cfg *ManagerConfig) { cfg.End = start.Add(-time.Hour) },
			wantErr:     true,
			errContains: []string{"must be after start"},
		},
		{
			name: "multiple missing fields",
			modify: func(cfg *ManagerConfig) {
				*cfg = ManagerConfig{}
			},
			wantErr: true,
			errContains: []string{
				"fetcher cannot be nil",
				"no market provided",
				"logger cannot be nil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *baseCfg
			tt.modify(&cfg)
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

func TestManagerFetchTimeframes(t *testing.T) {
	fetcher := &fetcherMock{calls: make(map[shared.Timeframe]int)}
	mgr, err := NewManager(&ManagerConfig{
		Fetcher: fetcher,
		Market:  "BTCUSDT",
		Start:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		Logger:  &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure every distinct timeframe is fetched exactly once.
	timeframes := []shared.Timeframe{shared.FourHour, shared.OneHour, shared.OneHour, shared.FifteenMinute}
	err = mgr.FetchTimeframes(context.Background(), timeframes)
	assert.NoError(t, err)
	err = mgr.FetchTimeframes(context.Background(), []shared.Timeframe{shared.OneHour})
	assert.NoError(t, err)

	assert.Equal(t, len(fetcher.calls), 3)
	for _, timeframe := range timeframes {
		assert.Equal(t, fetcher.calls[timeframe], 1)

		candles, ok := mgr.Candles(timeframe)
		assert.True(t, ok)
		assert.Equal(t, candles[0].Timeframe, timeframe)
	}

	_, ok := mgr.Candles(shared.OneMinute)
	assert.False(t, ok)
}

func TestManagerFetchTimeframesErrors(t *testing.T) {
	errFetch := errors.New("fetch failed")
	fetcher := &fetcherMock{calls: make(map[shared.Timeframe]int), err: errFetch}
	mgr, err := NewManager(&ManagerConfig{
		Fetcher: fetcher,
		Market:  "BTCUSDT",
		Logger:  &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure fetch errors are surfaced and nothing is cached.
	err = mgr.FetchTimeframes(context.Background(), []shared.Timeframe{shared.OneHour, shared.FiveMinute})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errFetch))
	_, ok := mgr.Candles(shared.OneHour)
	assert.False(t, ok)

	// Ensure a cancelled context stops scheduling fetches.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher.err = nil
	err = mgr.FetchTimeframes(ctx, []shared.Timeframe{shared.OneHour})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
