package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02"
	// DefaultLocation is the timezone candle timestamps are normalized to.
	DefaultLocation = "Europe/London"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	FifteenMinute
	ThirtyMinute
	OneHour
	FourHour
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case ThirtyMinute:
		return "30m"
	case OneHour:
		return "1h"
	case FourHour:
		return "4h"
	default:
		return "unknown"
	}
}

// Duration returns the time period covered by a single candle of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case ThirtyMinute:
		return time.Minute * 30
	case OneHour:
		return time.Hour
	case FourHour:
		return time.Hour * 4
	default:
		return 0
	}
}

// ParseTimeframe parses the provided timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "30m":
		return ThirtyMinute, nil
	case "1h":
		return OneHour, nil
	case "4h":
		return FourHour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe provided: %q", s)
	}
}

// TimeframePair represents a higher and lower timeframe combination analyzed together.
type TimeframePair struct {
	Higher Timeframe
	Lower  Timeframe
}

// String stringifies the provided timeframe pair.
func (p TimeframePair) String() string {
	return p.Higher.String() + ":" + p.Lower.String()
}

// ParseTimeframePair parses a "htf:ltf" timeframe pair.
func ParseTimeframePair(s string) (TimeframePair, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeframePair{}, fmt.Errorf("timeframe pair %q must be of the form htf:ltf", s)
	}

	higher, err := ParseTimeframe(parts[0])
	if err != nil {
		return TimeframePair{}, err
	}
	lower, err := ParseTimeframe(parts[1])
	if err != nil {
		return TimeframePair{}, err
	}
	if higher.Duration() <= lower.Duration() {
		return TimeframePair{}, fmt.Errorf("higher timeframe %s must be longer than lower timeframe %s",
			higher.String(), lower.String())
	}

	return TimeframePair{Higher: higher, Lower: lower}, nil
}

// LoadLocation loads the provided timezone, defaulting to DefaultLocation.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultLocation
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s timezone: %w", name, err)
	}

	return loc, nil
}
