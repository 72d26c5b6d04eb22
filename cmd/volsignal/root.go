package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volsignal/internal/config"
	"volsignal/internal/journal"
	"volsignal/internal/provider"
	"volsignal/internal/risk"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "volsignal",
	Short: "Daily SPX short-volatility signal engine",
	Long: `volsignal scores the risk of selling short-dated SPX volatility each
afternoon: realized-vs-implied vol, price trend and a news-risk
assessment combine into one composite score and a trade/skip signal.

Commands:
  serve     run the scheduled daemon with the HTTP surface
  evaluate  run a single evaluation cycle now
  backtest  replay the deterministic indicators over history
  validate  backfill realized outcomes into the journal`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.Name() == "serve")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// setupLogging picks JSON output for the daemon and a console writer for
// interactive commands.
func setupLogging(jsonOutput bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if !jsonOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func marketLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	return loc, nil
}

// newProvider builds the market data chain: Polygon when a key is set,
// Yahoo as the keyless fallback.
func newProvider(cfg *config.Config) provider.Provider {
	var providers []provider.Provider
	if cfg.API.Polygon.Key != "" {
		providers = append(providers, provider.NewPolygonProvider(cfg.API.Polygon.Key, cfg.API.Polygon.RateLimit))
	}
	providers = append(providers, provider.NewYahooProvider())
	return provider.NewFallbackProvider(providers...)
}

func newAssessor(cfg *config.Config) risk.Assessor {
	if cfg.API.Assessor.Key == "" {
		log.Warn().Msg("no assessor key configured, every cycle will use the elevated news-risk default")
	}
	return risk.NewOpenAIAssessor(cfg.API.Assessor.Key, cfg.API.Assessor.BaseURL, cfg.API.Assessor.Model)
}

func openStore(cfg *config.Config) (journal.Store, error) {
	if cfg.Journal.Path == "" {
		log.Warn().Msg("no journal path configured, decisions will not be persisted")
		return journal.Noop{}, nil
	}
	store, err := journal.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return store, nil
}
