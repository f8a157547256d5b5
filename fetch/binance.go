package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// defaultBinanceURL is the binance usd-m futures api base url.
	defaultBinanceURL = "https://fapi.binance.com"
	// klinesPath is the binance futures kline endpoint path.
	klinesPath = "/fapi/v1/klines"
	// maxPageLimit is the maximum number of klines binance returns per request.
	maxPageLimit = 1500
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// BaseURL is the binance futures api base url.
	BaseURL string
	// PageLimit is the number of klines requested per page.
	PageLimit int
	// Location is the timezone candle timestamps are converted to.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BinanceConfig) Validate() error {
	var errs error

	if cfg.PageLimit < 0 || cfg.PageLimit > maxPageLimit {
		errs = errors.Join(errs, fmt.Errorf("page limit must be within [0, %d], got %d", maxPageLimit, cfg.PageLimit))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// BinanceClient represents the binance futures market data client.
type BinanceClient struct {
	cfg    *BinanceConfig
	httpc  http.Client
	buf    *bytes.Buffer
	bufMtx sync.Mutex
}

// Ensure the BinanceClient implements the CandleFetcher interface.
var _ shared.CandleFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating binance config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBinanceURL
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = maxPageLimit
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 10},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}, nil
}

// formURL creates full urls including paramters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	c.bufMtx.Lock()
	defer c.bufMtx.Unlock()

	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// parseKlines parses candlesticks from the provided binance kline arrays, laid out as
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlines(data []gjson.Result, market string, timeframe shared.Timeframe, loc *time.Location) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		row := data[idx].Array()
		if len(row) < 7 {
			return nil, fmt.Errorf("kline at index %d has %d fields, expected at least 7", idx, len(row))
		}

		candles = append(candles, shared.Candlestick{
			Open:      row[1].Float(),
			High:      row[2].Float(),
			Low:       row[3].Float(),
			Close:     row[4].Float(),
			Volume:    row[5].Float(),
			OpenTime:  time.UnixMilli(row[0].Int()).In(loc),
			CloseTime: time.UnixMilli(row[6].Int()).In(loc),
			Market:    market,
			Timeframe: timeframe,
		})
	}

	return candles, nil
}

// fetchPage fetches a single page of klines opening at or after the provided start.
func (c *BinanceClient) fetchPage(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", market)
	params.Add("interval", timeframe.String())
	params.Add("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	if !end.IsZero() {
		params.Add("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}
	params.Add("limit", strconv.Itoa(c.cfg.PageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(klinesPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating klines request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching klines (%s) for %s: %w", timeframe.String(), market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching klines (%s) for %s: unexpected status %d: %s",
			timeframe.String(), market, resp.StatusCode, gjson.GetBytes(body, "msg").String())
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fetching klines (%s) for %s: malformed response body", timeframe.String(), market)
	}

	return gjson.ParseBytes(body).Array(), nil
}

// FetchCandles fetches the candles of the provided market and timeframe opening within
// [start, end], paging through the kline endpoint until the window is exhausted.
func (c *BinanceClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	if timeframe.Duration() == 0 {
		return nil, fmt.Errorf("unknown timeframe provided: %s", timeframe.String())
	}

	candles := []shared.Candlestick{}
	cursor := start
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		data, err := c.fetchPage(ctx, market, timeframe, cursor, end)
		if err != nil {
			return nil, err
		}

		page, err := parseKlines(data, market, timeframe, c.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("parsing klines: %w", err)
		}
		if len(page) == 0 {
			break
		}

		candles = append(candles, page...)
		cursor = page[len(page)-1].OpenTime.Add(time.Millisecond)

		if len(page) < c.cfg.PageLimit || (!end.IsZero() && cursor.After(end)) {
			break
		}
	}

	c.cfg.Logger.Info().Msgf("fetched %d %s candles for %s", len(candles), timeframe.String(), market)

	return candles, nil
}
