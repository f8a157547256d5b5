package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/sweep/service"
	"github.com/dnldd/sweep/shared"
	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Market is the backtested market.
	Market string
	// Start is the start date of the backtested window.
	Start string
	// End is the end date of the backtested window, optional.
	End string
	// Timeframes are the backtested higher and lower timeframe pairs.
	Timeframes []string
	// Coefficients are the backtested reward coefficients.
	Coefficients []string
	// Fractal is the swing point fractal width.
	Fractal int
	// StopLoss is the source of the stop loss level.
	StopLoss string
	// ExcludeCrossing skips entries whose break of structure lies beyond the sweep price.
	ExcludeCrossing bool
	// DataFilepath is the filepath to historic market data used instead of binance.
	DataFilepath string
	// Location is the timezone candle timestamps are converted to. Window dates are always UTC.
	Location string
	// OutputDir is the directory trade csv files are written to.
	OutputDir string
	// DBEndpoint is the rqlite database endpoint, persistence is disabled when empty.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string

	registeredFlags map[string]bool
}

// parseDate parses the provided YYYY-MM-DD date as midnight UTC.
func parseDate(s string) (time.Time, error) {
	date, err := time.ParseInLocation(shared.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}

	return date, nil
}

// parseTimeframePairs parses the provided htf:ltf timeframe pairs.
func parseTimeframePairs(set []string) ([]shared.TimeframePair, error) {
	pairs := make([]shared.TimeframePair, 0, len(set))
	for _, s := range set {
		pair, err := shared.ParseTimeframePair(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}

// parseCoefficients parses the provided reward coefficients.
func parseCoefficients(set []string) ([]float64, error) {
	coefficients := make([]float64, 0, len(set))
	for _, s := range set {
		coefficient, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing reward coefficient %q: %w", s, err)
		}
		if coefficient <= 0 {
			return nil, fmt.Errorf("reward coefficient must be positive, got %v", coefficient)
		}
		coefficients = append(coefficients, coefficient)
	}

	return coefficients, nil
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided"))
	}

	_, err := shared.LoadLocation(cfg.Location)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	var start time.Time
	switch cfg.Start {
	case "":
		errs = errors.Join(errs, fmt.Errorf("start date cannot be an empty string"))
	default:
		start, err = parseDate(cfg.Start)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if cfg.End != "" {
		end, err := parseDate(cfg.End)
		switch {
		case err != nil:
			errs = errors.Join(errs, err)
		case !start.IsZero() && !end.After(start):
			errs = errors.Join(errs, fmt.Errorf("end date %s must be after start date %s", cfg.End, cfg.Start))
		}
	}

	switch len(cfg.Timeframes) {
	case 0:
		errs = errors.Join(errs, fmt.Errorf("no timeframe pairs provided"))
	default:
		_, err = parseTimeframePairs(cfg.Timeframes)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}

	switch len(cfg.Coefficients) {
	case 0:
		errs = errors.Join(errs, fmt.Errorf("no reward coefficients provided"))
	default:
		_, err = parseCoefficients(cfg.Coefficients)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}

	err = shared.Fractal(cfg.Fractal).Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	_, err = shared.ParseStopLossSource(cfg.StopLoss)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	if cfg.DBUser != "" && cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database user provided without a database endpoint"))
	}

	return errs
}

// backtestConfig converts the validated config into the backtest service configuration.
// The data source, storage and summary destination are left to the caller.
func (cfg *Config) backtestConfig() (*service.BacktestConfig, *time.Location, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}

	loc, err := shared.LoadLocation(cfg.Location)
	if err != nil {
		return nil, nil, err
	}

	start, err := parseDate(cfg.Start)
	if err != nil {
		return nil, nil, err
	}

	var end time.Time
	if cfg.End != "" {
		end, err = parseDate(cfg.End)
		if err != nil {
			return nil, nil, err
		}
	}

	pairs, err := parseTimeframePairs(cfg.Timeframes)
	if err != nil {
		return nil, nil, err
	}
	coefficients, err := parseCoefficients(cfg.Coefficients)
	if err != nil {
		return nil, nil, err
	}
	stopLoss, err := shared.ParseStopLossSource(cfg.StopLoss)
	if err != nil {
		return nil, nil, err
	}

	backtestCfg := &service.BacktestConfig{
		Market:          cfg.Market,
		Start:           start,
		End:             end,
		Timeframes:      pairs,
		Coefficients:    coefficients,
		Fractal:         shared.Fractal(cfg.Fractal),
		StopLoss:        stopLoss,
		ExcludeCrossing: cfg.ExcludeCrossing,
		OutputDir:       cfg.OutputDir,
	}

	return backtestCfg, loc, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Defaults come from the same-named environment variable, falling back to the provided value.
func (cfg *Config) registerFlag(name string, value interface{}, fallback string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = fallback
	}
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name     string
		value    interface{}
		fallback string
		usage    string
	}{
		{"market", &cfg.Market, "BTCUSDT", "the backtested market"},
		{"start", &cfg.Start, "", "the backtest start date (YYYY-MM-DD, UTC)"},
		{"end", &cfg.End, "", "the backtest end date (YYYY-MM-DD, UTC), defaults to the latest data"},
		{"timeframes", &cfg.Timeframes, "4h:1h,1h:15m,1h:5m", "the comma separated htf:ltf timeframe pairs"},
		{"coefficients", &cfg.Coefficients, "1,1.5,2,2.5,3", "the comma separated reward coefficients"},
		{"fractal", &cfg.Fractal, "5", "the swing point fractal width (3 or 5)"},
		{"stoploss", &cfg.StopLoss, "htf", "the stop loss source (htf, ltf or sweep)"},
		{"excludecrossing", &cfg.ExcludeCrossing, "true", "skip entries whose break of structure crosses the sweep price"},
		{"datafilepath", &cfg.DataFilepath, "", "the historic data filepath, binance is queried when empty"},
		{"location", &cfg.Location, shared.DefaultLocation, "the timezone candle timestamps are interpreted in"},
		{"outputdir", &cfg.OutputDir, "results", "the trade csv output directory"},
		{"dbendpoint", &cfg.DBEndpoint, "", "the rqlite database endpoint"},
		{"dbuser", &cfg.DBUser, "", "the database user"},
		{"dbpass", &cfg.DBPass, "", "the database user pass"},
	}

	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.fallback, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
