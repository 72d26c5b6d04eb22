package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"volsignal/internal/outcome"
)

var (
	valDryRun     bool
	valReportOnly bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Backfill realized outcomes into the journal and report accuracy",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&valDryRun, "dry-run", false, "compute outcomes without writing them")
	validateCmd.Flags().BoolVar(&valReportOnly, "report", false, "print the accuracy report without backfilling")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return fmt.Errorf("no journal path configured, nothing to validate")
	}
	loc, err := marketLocation(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if !valReportOnly {
		v := outcome.NewValidator(newProvider(cfg), store, loc)
		res, err := v.Backfill(cmd.Context(), valDryRun)
		if err != nil {
			return err
		}
		outcome.PrintBackfill(os.Stdout, res, valDryRun)
	}

	entries, err := store.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}
	outcome.PrintAccuracyReport(os.Stdout, entries)
	return nil
}
