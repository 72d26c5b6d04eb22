package provider

import (
	"context"
	"time"

	"volsignal/pkg/model"
)

// Index tickers used throughout the system.
const (
	TickerSPX    = "I:SPX"
	TickerVIX1D  = "I:VIX1D"
	TickerVIX    = "I:VIX"
	TickerVIX3M  = "I:VIX3M"
	YahooSPX     = "^GSPC"
	YahooVIX1D   = "^VIX1D"
	YahooVIX     = "^VIX"
	YahooVIX3M   = "^VIX3M"
)

// Provider supplies index snapshots and historical bars.
type Provider interface {
	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider can be used (has credentials)
	IsAvailable() bool

	// Snapshot fetches the current session for one index ticker
	Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error)

	// DailyCloses fetches up to limit trailing daily closes, most recent
	// first
	DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error)

	// DailyBars fetches daily bars over [from, to], ascending by date
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error)

	// DayBar fetches the bar for a single date; model.ErrNoData when the
	// market was closed
	DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error)

	// MinutePrice fetches the price at the given instant from minute bars,
	// accepting a bar within two minutes of the target
	MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error)
}

// Error is a provider-specific error carrying retryability
type Error struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// tickerAlias maps a primary (Polygon-style) ticker to each provider's
// own symbol. Fallback providers translate through this table.
var tickerAlias = map[string]map[string]string{
	"yahoo": {
		TickerSPX:   YahooSPX,
		TickerVIX1D: YahooVIX1D,
		TickerVIX:   YahooVIX,
		TickerVIX3M: YahooVIX3M,
	},
}

// FallbackProvider tries multiple providers in order.
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a fallback chain from the available
// providers, preserving order.
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

func (f *FallbackProvider) Name() string { return "fallback" }

func (f *FallbackProvider) IsAvailable() bool { return len(f.providers) > 0 }

// Providers returns the underlying chain.
func (f *FallbackProvider) Providers() []Provider { return f.providers }

func aliasFor(p Provider, ticker string) string {
	if m, ok := tickerAlias[p.Name()]; ok {
		if alias, ok := m[ticker]; ok {
			return alias
		}
	}
	return ticker
}

func (f *FallbackProvider) Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error) {
	var lastErr error
	for _, p := range f.providers {
		snap, err := p.Snapshot(ctx, aliasFor(p, ticker))
		if err == nil {
			return snap, nil
		}
		lastErr = err
	}
	return model.IndexSnapshot{}, lastErr
}

func (f *FallbackProvider) DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	var lastErr error
	for _, p := range f.providers {
		closes, err := p.DailyCloses(ctx, aliasFor(p, ticker), limit)
		if err == nil {
			return closes, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *FallbackProvider) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	var lastErr error
	for _, p := range f.providers {
		bars, err := p.DailyBars(ctx, aliasFor(p, ticker), from, to)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *FallbackProvider) DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error) {
	var lastErr error
	for _, p := range f.providers {
		bar, err := p.DayBar(ctx, aliasFor(p, ticker), date)
		if err == nil {
			return bar, nil
		}
		lastErr = err
	}
	return model.Bar{}, lastErr
}

func (f *FallbackProvider) MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error) {
	var lastErr error
	for _, p := range f.providers {
		price, err := p.MinutePrice(ctx, aliasFor(p, ticker), at)
		if err == nil {
			return price, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// FetchSeries builds a PriceSeries from a snapshot plus trailing closes.
func FetchSeries(ctx context.Context, p Provider, ticker string, lookback int) (model.PriceSeries, error) {
	snap, err := p.Snapshot(ctx, ticker)
	if err != nil {
		return model.PriceSeries{}, err
	}
	closes, err := p.DailyCloses(ctx, ticker, lookback)
	if err != nil {
		return model.PriceSeries{}, err
	}

	series := model.PriceSeries{
		Symbol:        ticker,
		Current:       snap.Value,
		OpenToday:     snap.OpenToday,
		HighToday:     snap.HighToday,
		LowToday:      snap.LowToday,
		PreviousClose: snap.PreviousClose,
		Closes:        closes,
		AsOf:          snap.AsOf,
	}
	if err := series.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	return series, nil
}
