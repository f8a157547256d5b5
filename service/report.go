package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dnldd/sweep/engine"
	"github.com/dnldd/sweep/position"
	"github.com/olekukonko/tablewriter"
)

// reportFileName returns the csv file name of the provided run.
func reportFileName(cfg *engine.BacktestConfig) string {
	return fmt.Sprintf("%s_%s_%s_%s.csv", cfg.Market, cfg.Timeframes.Higher.String(),
		cfg.Timeframes.Lower.String(), strconv.FormatFloat(cfg.Coefficient, 'f', -1, 64))
}

// ExportCSV writes the trades of the provided report to a csv file in the provided
// directory and returns the file's path.
func ExportCSV(dir string, report *engine.Report) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, reportFileName(&report.Config))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}

	err = position.WriteCSV(file, report.Trades)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	err = file.Close()
	if err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	return path, nil
}

// RenderSummary renders a table of the provided reports' summaries.
func RenderSummary(w io.Writer, reports []*engine.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"market", "timeframes", "coefficient", "sweeps", "trades", "wins",
		"losses", "win %", "long win %", "short win %", "max win streak", "max lose streak",
		"profit (r)", "expectancy (r)", "median hold (m)"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, report := range reports {
		summary := report.Summary
		table.Append([]string{
			report.Config.Market,
			report.Config.Timeframes.String(),
			strconv.FormatFloat(summary.Coefficient, 'f', -1, 64),
			strconv.Itoa(report.Sweeps),
			strconv.Itoa(summary.TradeCount),
			strconv.Itoa(summary.WinCount),
			strconv.Itoa(summary.LoseCount),
			fmt.Sprintf("%d%%", position.Percent(summary.WinRate)),
			fmt.Sprintf("%d%%", position.Percent(summary.LongWinRate)),
			fmt.Sprintf("%d%%", position.Percent(summary.ShortWinRate)),
			strconv.Itoa(summary.MaxWinStreak),
			strconv.Itoa(summary.MaxLoseStreak),
			fmt.Sprintf("%.2f", summary.CumulativeProfit),
			fmt.Sprintf("%.2f", summary.Expectancy),
			fmt.Sprintf("%.1f", summary.MedianHoldMinutes),
		})
	}

	table.Render()
}
