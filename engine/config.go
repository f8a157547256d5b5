package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/sweep/shared"
)

// ErrInvalidCoefficient is returned for non-positive reward coefficients.
var ErrInvalidCoefficient = errors.New("reward coefficient must be positive")

// BacktestConfig represents the configuration of a single backtest run.
type BacktestConfig struct {
	// Market is the backtested market.
	Market string
	// Timeframes is the higher and lower timeframe pair analyzed.
	Timeframes shared.TimeframePair
	// Fractal is the swing point fractal width.
	Fractal shared.Fractal
	// StopLoss is the source of the stop loss level.
	StopLoss shared.StopLossSource
	// Coefficient is the reward multiple of the stop loss distance targeted.
	Coefficient float64
	// ExcludeCrossing skips entries whose break of structure lies beyond the sweep price.
	ExcludeCrossing bool
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	var errs error

	err := cfg.Fractal.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	err = cfg.StopLoss.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.Coefficient <= 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: %v", ErrInvalidCoefficient, cfg.Coefficient))
	}

	return errs
}
