package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// supportedTimeframes are the timeframes historic data files may carry.
var supportedTimeframes = []shared.Timeframe{
	shared.OneMinute,
	shared.FiveMinute,
	shared.FifteenMinute,
	shared.ThirtyMinute,
	shared.OneHour,
	shared.FourHour,
}

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Location is the timezone candle timestamps are converted to.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *HistoricDataConfig) Validate() error {
	var errs error

	if cfg.FilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("file path cannot be empty"))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// HistoricData represents historic market data loaded from a json file.
type HistoricData struct {
	cfg     *HistoricDataConfig
	market  string
	candles map[shared.Timeframe][]shared.Candlestick
}

// Ensure HistoricData implements the CandleFetcher interface.
var _ shared.CandleFetcher = (*HistoricData)(nil)

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading historic data from file with path '%s': %w", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return gjson.Result{}, fmt.Errorf("historic data file with path '%s' is not valid json", filepath)
	}

	return gjson.ParseBytes(readb), nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating historic data config: %w", err)
	}

	data, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	market := data.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("historic data has no market")
	}

	historicData := HistoricData{
		cfg:     cfg,
		market:  market,
		candles: make(map[shared.Timeframe][]shared.Candlestick),
	}

	for _, timeframe := range supportedTimeframes {
		set := data.Get(timeframe.String())
		if !set.Exists() {
			continue
		}

		candles, err := shared.ParseCandlesticks(set.Array(), market, timeframe, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("parsing %s candlesticks: %w", timeframe.String(), err)
		}

		historicData.candles[timeframe] = candles
		cfg.Logger.Info().Msgf("loaded %d %s candles for %s", len(candles), timeframe.String(), market)
	}

	return &historicData, nil
}

// Market returns the market of the historic data.
func (h *HistoricData) Market() string {
	return h.market
}

// FetchCandles returns the loaded candles of the provided market and timeframe opening
// within [start, end].
func (h *HistoricData) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if market != h.market {
		return nil, fmt.Errorf("historic data covers %s, requested %s", h.market, market)
	}

	candles, ok := h.candles[timeframe]
	if !ok {
		return nil, fmt.Errorf("no %s historic data for %s", timeframe.String(), market)
	}

	return shared.Between(candles, start, end), nil
}
