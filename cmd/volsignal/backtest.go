package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"volsignal/internal/backtest"
)

var (
	btDays      int
	btStart     string
	btEnd       string
	btNewsScore int
	btSweep     bool
	btTradeDays string
	btVerbose   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the deterministic indicators over historical data",
	Long: `Replays SPX and VIX1D history through the volatility and trend
indicators with a fixed stub standing in for the news-risk score, then
scores each day's decision against the realized next-day open.`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().IntVar(&btDays, "days", 60, "trading days to backtest when no start date is given")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "start date YYYY-MM-DD (overrides --days)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "end date YYYY-MM-DD (default: today)")
	backtestCmd.Flags().IntVar(&btNewsScore, "news-score", 4, "fixed news-risk stub score")
	backtestCmd.Flags().BoolVar(&btSweep, "sweep", false, "sweep news stub scores 2-8 and compare")
	backtestCmd.Flags().StringVar(&btTradeDays, "trade-days", "Mon,Tue,Wed,Thu,Fri", "weekdays to simulate")
	backtestCmd.Flags().BoolVar(&btVerbose, "print-days", false, "print every simulated day")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := marketLocation(cfg)
	if err != nil {
		return err
	}

	tradeDays, err := backtest.ParseTradeDays(btTradeDays)
	if err != nil {
		return err
	}

	end := time.Now().In(loc)
	if btEnd != "" {
		end, err = time.Parse("2006-01-02", btEnd)
		if err != nil {
			return fmt.Errorf("parsing end date: %w", err)
		}
	}

	var start time.Time
	if btStart != "" {
		start, err = time.Parse("2006-01-02", btStart)
		if err != nil {
			return fmt.Errorf("parsing start date: %w", err)
		}
	} else {
		// Roughly 1.4 calendar days per trading day.
		start = end.AddDate(0, 0, -(btDays*14/10 + 10))
	}

	opt := backtest.Options{
		Start:     start,
		End:       end,
		StubScore: btNewsScore,
		TradeDays: tradeDays,
	}

	prov := newProvider(cfg)

	if btSweep {
		results, err := backtest.Sweep(cmd.Context(), prov, opt, 2, 8)
		if err != nil {
			return err
		}
		backtest.PrintSweep(os.Stdout, results)
		return nil
	}

	var bar *progressbar.ProgressBar
	opt.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Simulating"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]█[reset]",
					SaucerHead:    "[green]█[reset]",
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		bar.Set(done)
	}

	result, err := backtest.Run(cmd.Context(), prov, opt)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if btVerbose {
		backtest.PrintRecords(os.Stdout, result)
	}
	backtest.PrintReport(os.Stdout, result)
	return nil
}
