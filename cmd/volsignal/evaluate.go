package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"volsignal/internal/alert"
	"volsignal/internal/engine"
	"volsignal/internal/journal"
	"volsignal/internal/newsfeed"
	"volsignal/internal/webhook"
)

var evalNoJournal bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a single evaluation cycle now and print the result",
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().BoolVar(&evalNoJournal, "no-journal", false, "do not persist this cycle")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := marketLocation(cfg)
	if err != nil {
		return err
	}

	var store journal.Store = journal.Noop{}
	if !evalNoJournal {
		store, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	tracker := alert.NewTracker(cfg.Webhooks.Alert, loc)
	eng := engine.New(cfg, newProvider(cfg), newsfeed.NewFetcher(cfg.News),
		newAssessor(cfg), store, webhook.NewDispatcher(cfg.Webhooks), tracker, loc)

	entry, err := eng.RunCycle(cmd.Context(), 0)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	printEntry(entry)
	return nil
}

func printEntry(e *journal.Entry) {
	fmt.Printf("\n%s  SPX=%.2f  VIX=%.1f  VIX1D=%.1f\n\n",
		e.Timestamp.Format("2006-01-02 15:04 MST"), e.SPX, e.VIX, e.VIX1D)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Factor", "Score", "Detail"}),
	)
	table.Append([]string{"IV/RV", fmt.Sprintf("%d", e.Volatility.Score),
		fmt.Sprintf("ratio=%.2f rv=%.1f %s", e.Volatility.Ratio, e.Volatility.RealizedVol, e.Volatility.TermStructure)})
	table.Append([]string{"Trend", fmt.Sprintf("%d", e.Trend.Score),
		fmt.Sprintf("5d=%+.2f%% range=%.2f%%", e.Trend.Change5d, e.Trend.IntradayRange)})
	table.Append([]string{"News", fmt.Sprintf("%d", e.NewsRisk.Score),
		fmt.Sprintf("%s (%d articles)", e.NewsRisk.Category, e.ArticlesSent)})
	table.Render()

	if len(e.Contra.Flags) > 0 {
		fmt.Printf("\nContradictions: %s (adjust %+.1f)\n",
			strings.Join(e.Contra.Flags, ", "), e.Contra.ScoreAdjustment)
	}

	fmt.Printf("\nComposite: %.1f (%s)\n", e.Composite.Score, e.Composite.Category)
	fmt.Printf("Signal:    %s\n", e.Signal.Decision)
	fmt.Printf("Reason:    %s\n", e.Signal.Reason)
	fmt.Printf("Executed:  %s (webhook ok: %v)\n", e.TradeExecuted, e.WebhookSuccess)
}
