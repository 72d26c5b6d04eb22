package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"volsignal/internal/alert"
	"volsignal/internal/config"
	"volsignal/internal/indicator"
	"volsignal/internal/journal"
	"volsignal/internal/metrics"
	"volsignal/internal/news"
	"volsignal/internal/newsfeed"
	"volsignal/internal/provider"
	"volsignal/internal/risk"
	"volsignal/internal/signal"
	"volsignal/internal/webhook"
	"volsignal/pkg/model"
)

// lookbackCloses is how many trailing daily closes each cycle fetches:
// enough for the RV-change modifier plus slack for short weeks.
const lookbackCloses = 25

// marketDataRetries bounds the fetch attempts per upstream source.
const marketDataRetries = 3

// Engine runs one full evaluation cycle: market data, news pipeline,
// indicators, contradiction check, composite, signal, execution gates,
// webhook and journal.
type Engine struct {
	cfg      *config.Config
	provider provider.Provider
	fetcher  *newsfeed.Fetcher
	assessor risk.Assessor
	store    journal.Store
	hooks    *webhook.Dispatcher
	tracker  *alert.Tracker
	loc      *time.Location
	now      func() time.Time
}

// New wires an engine from its parts. loc is the market time zone.
func New(cfg *config.Config, p provider.Provider, fetcher *newsfeed.Fetcher, assessor risk.Assessor,
	store journal.Store, hooks *webhook.Dispatcher, tracker *alert.Tracker, loc *time.Location) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: p,
		fetcher:  fetcher,
		assessor: assessor,
		store:    store,
		hooks:    hooks,
		tracker:  tracker,
		loc:      loc,
		now:      time.Now,
	}
}

// RunCycle executes one evaluation, journals it and returns the entry.
// Upstream data failures abort the cycle rather than guessing a score.
func (e *Engine) RunCycle(ctx context.Context, poke int) (*journal.Entry, error) {
	now := e.now().In(e.loc)
	logger := log.With().Int("poke", poke).Str("date", now.Format("2006-01-02")).Logger()
	logger.Info().Msg("cycle start")

	series, err := e.fetchSeries(ctx)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("market_data").Inc()
		e.tracker.APIFailure(ctx, "Polygon")
		return nil, fmt.Errorf("market data: %w", err)
	}

	reading, vix, err := e.fetchVolatility(ctx)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("volatility").Inc()
		e.tracker.APIFailure(ctx, "Polygon")
		return nil, fmt.Errorf("volatility data: %w", err)
	}

	volResult, err := indicator.AnalyzeIVRV(series, reading)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("indicator").Inc()
		return nil, fmt.Errorf("iv/rv indicator: %w", err)
	}
	trendResult := indicator.AnalyzeTrend(series)

	pipeline := e.runNewsPipeline(ctx)
	newsResult, usedFallback := risk.Evaluate(ctx, e.assessor, pipeline)
	if usedFallback {
		metrics.AssessorFallbacks.Inc()
	}

	contra, composite, sig := signal.Evaluate(volResult.Score, trendResult.Score, newsResult.Score)

	executed, err := ApplyGates(ctx, e.cfg.Gates, e.store, sig, now, vix)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("gates").Inc()
		return nil, err
	}

	webhookOK := e.dispatch(ctx, sig, composite, executed)

	entry := &journal.Entry{
		Timestamp:      now,
		TradeDate:      now.Format("2006-01-02"),
		Poke:           poke,
		Volatility:     volResult,
		Trend:          trendResult,
		NewsRisk:       newsResult,
		Contra:         contra,
		Composite:      composite,
		Signal:         sig,
		SPX:            series.Current,
		VIX:            vix,
		VIX1D:          reading.Current,
		ArticlesRaw:    pipeline.Stats.RawArticles,
		ArticlesUnique: pipeline.Stats.UniqueArticles,
		ArticlesSent:   pipeline.Stats.SentToAssessor,
		TradeExecuted:  executed,
		WebhookSuccess: webhookOK,
	}

	if err := e.store.Append(ctx, entry); err != nil {
		metrics.CycleErrors.WithLabelValues("journal").Inc()
		return nil, fmt.Errorf("journaling cycle: %w", err)
	}

	e.tracker.SignalSuccess()
	metrics.CyclesTotal.WithLabelValues(string(sig.Decision)).Inc()
	metrics.CompositeScore.Set(composite.Score)

	logger.Info().
		Str("signal", string(sig.Decision)).
		Float64("composite", composite.Score).
		Str("executed", executed).
		Msg("cycle complete")
	return entry, nil
}

func (e *Engine) fetchSeries(ctx context.Context) (model.PriceSeries, error) {
	var lastErr error
	for attempt := 1; attempt <= marketDataRetries; attempt++ {
		series, err := provider.FetchSeries(ctx, e.provider, provider.TickerSPX, lookbackCloses)
		if err == nil {
			return series, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("price series fetch failed")
		if !retryable(err) {
			break
		}
	}
	return model.PriceSeries{}, lastErr
}

// fetchVolatility returns the implied-vol reading (VIX1D with VIX as the
// longer tenor) and the VIX level for the gate.
func (e *Engine) fetchVolatility(ctx context.Context) (model.VolatilityReading, float64, error) {
	var reading model.VolatilityReading
	var lastErr error

	for attempt := 1; attempt <= marketDataRetries; attempt++ {
		snap, err := e.provider.Snapshot(ctx, provider.TickerVIX1D)
		if err == nil {
			reading.Current = snap.Value
			break
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("vix1d fetch failed")
		if !retryable(err) {
			break
		}
	}
	if reading.Current == 0 {
		return reading, 0, lastErr
	}

	// The 30-day index feeds both the term structure and the level gate.
	// Losing it degrades the cycle, not aborts it.
	var vix float64
	if snap, err := e.provider.Snapshot(ctx, provider.TickerVIX); err == nil {
		vix = snap.Value
		reading.LongTenor = snap.Value
	} else {
		log.Warn().Err(err).Msg("vix fetch failed, term structure and gate disabled")
	}

	return reading, vix, nil
}

func (e *Engine) runNewsPipeline(ctx context.Context) news.Result {
	articles, err := e.fetcher.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("news fetch failed entirely")
		e.tracker.APIFailure(ctx, "NewsFeeds")
		return news.Result{}
	}
	return news.Process(articles)
}

// dispatch posts the webhook for executable trades and for SKIP
// notifications. Gate-blocked trades are not dispatched.
func (e *Engine) dispatch(ctx context.Context, sig model.Signal, composite model.CompositeScore, executed string) bool {
	if executed != model.ExecutedYes && executed != model.ExecutedNoSkip {
		metrics.WebhookDispatches.WithLabelValues("blocked").Inc()
		return false
	}

	ok, err := e.hooks.Send(ctx, sig, composite)
	if err != nil {
		log.Error().Err(err).Msg("webhook dispatch failed")
		metrics.WebhookDispatches.WithLabelValues("error").Inc()
		return false
	}
	metrics.WebhookDispatches.WithLabelValues("ok").Inc()
	return ok
}

func retryable(err error) bool {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return true
}
