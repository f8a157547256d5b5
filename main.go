package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"github.com/dnldd/sweep/database"
	"github.com/dnldd/sweep/fetch"
	"github.com/dnldd/sweep/service"
	"github.com/dnldd/sweep/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// newFetcher creates the market data source of the provided config. Historic data files
// must cover the configured market.
func newFetcher(cfg *Config, loc *time.Location) (shared.CandleFetcher, error) {
	fetchLogger := log.With().Str("service", "sweep").Str("component", "fetch").Logger()

	if cfg.DataFilepath == "" {
		client, err := fetch.NewBinanceClient(&fetch.BinanceConfig{
			Location: loc,
			Logger:   &fetchLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating binance client: %w", err)
		}

		return client, nil
	}

	historicData, err := fetch.NewHistoricData(&fetch.HistoricDataConfig{
		FilePath: cfg.DataFilepath,
		Location: loc,
		Logger:   &fetchLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	if historicData.Market() != cfg.Market {
		return nil, fmt.Errorf("historic data %s covers %s, expected %s", cfg.DataFilepath,
			historicData.Market(), cfg.Market)
	}

	return historicData, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		os.Exit(1)
	}

	backtestCfg, loc, err := cfg.backtestConfig()
	if err != nil {
		log.Error().Msgf("creating backtest config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleTermination(ctx, cancel)

	fetcher, err := newFetcher(&cfg, loc)
	if err != nil {
		log.Error().Msgf("creating fetcher: %v", err)
		os.Exit(1)
	}
	backtestCfg.Fetcher = fetcher

	if cfg.DBEndpoint != "" {
		dbLogger := log.With().Str("service", "sweep").Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			log.Error().Msgf("creating database: %v", err)
			os.Exit(1)
		}
		backtestCfg.Store = db
	}

	backtestCfg.Summary = os.Stdout

	backtest, err := service.NewBacktest(backtestCfg)
	if err != nil {
		log.Error().Msgf("creating backtest service: %v", err)
		os.Exit(1)
	}

	_, err = backtest.Run(ctx)
	if err != nil {
		log.Error().Msgf("running backtest: %v", err)
		os.Exit(1)
	}
}
