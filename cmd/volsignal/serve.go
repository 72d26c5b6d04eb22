package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volsignal/internal/alert"
	"volsignal/internal/daemon"
	"volsignal/internal/engine"
	"volsignal/internal/newsfeed"
	"volsignal/internal/web"
	"volsignal/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled evaluation daemon and HTTP surface",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	tracker := alert.NewTracker(cfg.Webhooks.Alert, loc)
	eng := engine.New(cfg, newProvider(cfg), newsfeed.NewFetcher(cfg.News),
		newAssessor(cfg), store, webhook.NewDispatcher(cfg.Webhooks), tracker, loc)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d := daemon.New(cfg, eng, tracker, loc)
	if err := d.Start(ctx); err != nil {
		return err
	}

	srv := web.NewServer(cfg, eng, tracker, loc)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("web server failed")
		}
	}

	cancel()
	d.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
