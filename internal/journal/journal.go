package journal

import (
	"context"
	"time"

	"volsignal/pkg/model"
)

// Entry is one evaluation cycle as journaled: every indicator diagnostic,
// the composite, the signal, the gate verdict and, once validated, the
// realized outcome.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	TradeDate string    `json:"trade_date"` // YYYY-MM-DD, market local
	Poke      int       `json:"poke"`

	Volatility model.VolatilityResult    `json:"volatility"`
	Trend      model.TrendResult         `json:"trend"`
	NewsRisk   model.NewsRiskResult      `json:"news_risk"`
	Contra     model.ContradictionResult `json:"contradiction"`
	Composite  model.CompositeScore      `json:"composite"`
	Signal     model.Signal              `json:"signal"`

	SPX   float64 `json:"spx"`
	VIX   float64 `json:"vix"`
	VIX1D float64 `json:"vix1d"`

	ArticlesRaw    int `json:"articles_raw"`
	ArticlesUnique int `json:"articles_unique"`
	ArticlesSent   int `json:"articles_sent"`

	TradeExecuted  string `json:"trade_executed"`
	WebhookSuccess bool   `json:"webhook_success"`

	Outcome *Outcome `json:"outcome,omitempty"`
}

// Outcome is the realized next-day result backfilled by the validator.
// An entry with a non-nil outcome is immutable.
type Outcome struct {
	ExitPrice   float64   `json:"exit_price"`
	ExitSource  string    `json:"exit_source"` // "10am" or "open"
	NextClose   float64   `json:"next_close"`
	MovePct     float64   `json:"move_pct"`
	Verdict     string    `json:"verdict"` // e.g. CORRECT_TRADE, WRONG_SKIP
	ValidatedAt time.Time `json:"validated_at"`
}

// Store is the decision journal. Append-only per cycle; outcomes are
// backfilled once and never overwritten.
type Store interface {
	// Append records one completed evaluation cycle
	Append(ctx context.Context, e *Entry) error

	// Pending returns entries that have no outcome yet, oldest first
	Pending(ctx context.Context) ([]Entry, error)

	// All returns every entry ordered by timestamp
	All(ctx context.Context) ([]Entry, error)

	// RecordOutcome backfills the outcome for one entry. A second call
	// for the same entry is a no-op.
	RecordOutcome(ctx context.Context, id string, o Outcome) error

	// ExecutedToday reports whether a webhook was already dispatched for
	// the given trade date
	ExecutedToday(ctx context.Context, tradeDate string) (bool, error)

	Close() error
}

// Noop discards everything. Used when no journal path is configured.
type Noop struct{}

func (Noop) Append(ctx context.Context, e *Entry) error                    { return nil }
func (Noop) Pending(ctx context.Context) ([]Entry, error)                  { return nil, nil }
func (Noop) All(ctx context.Context) ([]Entry, error)                      { return nil, nil }
func (Noop) RecordOutcome(ctx context.Context, id string, o Outcome) error { return nil }
func (Noop) ExecutedToday(ctx context.Context, date string) (bool, error)  { return false, nil }
func (Noop) Close() error                                                  { return nil }
