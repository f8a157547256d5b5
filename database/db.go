package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/sweep/engine"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL = "CREATE TABLE IF NOT EXISTS trade (id TEXT, runid TEXT, market TEXT, timeframes TEXT, direction TEXT, sweepdate INTEGER, sweepprice REAL, bosprice REAL, entrydate INTEGER, entryprice REAL, takeprofit REAL, stoploss REAL, result TEXT, resultdate INTEGER, PRIMARY KEY (runid, id))"
	createRunTableSQL   = "CREATE TABLE IF NOT EXISTS run (id TEXT PRIMARY KEY, market TEXT, timeframes TEXT, fractal INTEGER, stoploss TEXT, coefficient REAL, excludecrossing INTEGER, sweeps INTEGER, trades INTEGER, wins INTEGER, losses INTEGER, winrate REAL, longwinrate REAL, shortwinrate REAL, maxwinstreak INTEGER, maxlosestreak INTEGER, cumulativeprofit REAL, expectancy REAL, medianholdminutes REAL, createdon INTEGER)"
	persistTradeSQL     = "INSERT OR REPLACE INTO trade(id, runid, market, timeframes, direction, sweepdate, sweepprice, bosprice, entrydate, entryprice, takeprofit, stoploss, result, resultdate) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	persistRunSQL       = "INSERT OR REPLACE INTO run(id, market, timeframes, fractal, stoploss, coefficient, excludecrossing, sweeps, trades, wins, losses, winrate, longwinrate, shortwinrate, maxwinstreak, maxlosestreak, cumulativeprofit, expectancy, medianholdminutes, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	deleteRunTradesSQL  = "DELETE FROM trade WHERE runid = ?"
	findRunSQL          = "SELECT id FROM run WHERE id = ?"
)

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
		{SQL: createTradeTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating tables: %d -> %s", idx, errStr)
	}

	return nil
}

// generateRunID generates deterministic ids for backtest runs using the run configuration.
func generateRunID(cfg *engine.BacktestConfig) string {
	key := fmt.Sprintf("%s|%s|%d|%s|%v|%t", cfg.Market, cfg.Timeframes.String(), cfg.Fractal,
		cfg.StopLoss.String(), cfg.Coefficient, cfg.ExcludeCrossing)

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// reportStatements returns the statements persisting the provided report under the provided run id.
// Trades of an earlier run with the same id are removed first.
func reportStatements(report *engine.Report, runID string, createdOn time.Time) rqlitehttp.SQLStatements {
	cfg := report.Config
	summary := report.Summary

	stmts := rqlitehttp.SQLStatements{
		{
			SQL:              deleteRunTradesSQL,
			PositionalParams: []any{runID},
		},
		{
			SQL: persistRunSQL,
			PositionalParams: []any{runID, cfg.Market, cfg.Timeframes.String(), int(cfg.Fractal),
				cfg.StopLoss.String(), cfg.Coefficient, cfg.ExcludeCrossing, report.Sweeps,
				summary.TradeCount, summary.WinCount, summary.LoseCount, summary.WinRate,
				summary.LongWinRate, summary.ShortWinRate, summary.MaxWinStreak, summary.MaxLoseStreak,
				summary.CumulativeProfit, summary.Expectancy, summary.MedianHoldMinutes,
				createdOn.UnixMilli()},
		},
	}

	for _, trade := range report.Trades {
		stmts = append(stmts, rqlitehttp.SQLStatements{
			{
				SQL: persistTradeSQL,
				PositionalParams: []any{trade.ID, runID, trade.Market, trade.Timeframes.String(),
					trade.Direction.String(), trade.SweepDate.UnixMilli(), trade.SweepPrice, trade.BOSPrice,
					trade.EntryDate.UnixMilli(), trade.EntryPrice, trade.TakeProfit, trade.StopLoss,
					trade.Result.String(), trade.ResultDate.UnixMilli()},
			},
		}...)
	}

	return stmts
}

// runExists checks whether a run with the provided id has been persisted.
func (db *Database) runExists(ctx context.Context, runID string) (bool, error) {
	resp, err := db.client.QuerySingle(ctx, findRunSQL, runID)
	if err != nil {
		return false, err
	}

	return len(resp.GetQueryResultsAssoc()) > 0, nil
}

// PersistReport stores the provided backtest report and its trades to the database,
// replacing any earlier run of the same configuration.
func (db *Database) PersistReport(ctx context.Context, report *engine.Report) error {
	if report.Summary.TradeCount != len(report.Trades) {
		db.cfg.Logger.Error().Msgf("unexpected report state for persistence: %s", spew.Sdump(report.Summary))
	}

	runID := generateRunID(&report.Config)
	exists, err := db.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("finding run %s: %w", runID, err)
	}
	if exists {
		db.cfg.Logger.Info().Msgf("replacing persisted run %s (%s, %s, coefficient %v)", runID,
			report.Config.Market, report.Config.Timeframes.String(), report.Config.Coefficient)
	}

	resp, err := db.client.Execute(ctx, reportStatements(report, runID, time.Now()),
		&rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return fmt.Errorf("persisting run %s: %w", runID, err)
	}

	has, idx, errStr := resp.HasError()
	if has {
		db.cfg.Logger.Error().Msgf("persisting run %s failed: %s", runID, spew.Sdump(resp))
		return fmt.Errorf("persisting run %s: %d -> %s", runID, idx, errStr)
	}

	return nil
}
