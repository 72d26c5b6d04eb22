package model

import (
	"errors"
	"time"
)

// ErrInsufficientHistory is returned when a price series is too short for
// the computation asked of it.
var ErrInsufficientHistory = errors.New("insufficient price history")

// ErrNoData is returned when the provider has no bar for a requested
// date, typically a market holiday.
var ErrNoData = errors.New("no data for date")

// Minimum close counts for the volatility calculations: 11 closes give the
// 10 log-returns for realized vol, 21 give the prior window for the
// RV-change modifier.
const (
	MinClosesRV       = 11
	MinClosesRVChange = 21
)

// PriceSeries holds daily closes for the underlying index, most-recent-first,
// plus the current session snapshot. Immutable for the duration of one
// evaluation cycle.
type PriceSeries struct {
	Symbol        string    `json:"symbol"`
	Current       float64   `json:"current"`
	HighToday     float64   `json:"high_today"`
	LowToday      float64   `json:"low_today"`
	OpenToday     float64   `json:"open_today"`
	PreviousClose float64   `json:"previous_close"`
	Closes        []float64 `json:"closes"` // most-recent-first
	AsOf          time.Time `json:"as_of"`
}

// Validate checks the series can support a 10-day realized vol calculation.
func (p *PriceSeries) Validate() error {
	if len(p.Closes) < MinClosesRV {
		return ErrInsufficientHistory
	}
	if p.Current <= 0 {
		return errors.New("non-positive current price")
	}
	return nil
}

// VolatilityReading is a forward-looking implied-volatility index value.
// LongTenor is an optional longer-dated reading used only for the
// term-structure adjustment; zero means not available.
type VolatilityReading struct {
	Current   float64 `json:"current"`
	LongTenor float64 `json:"long_tenor,omitempty"`
}

// Article priority tags assigned by the keyword filter.
const (
	PriorityHigh   = "HIGH"
	PriorityNormal = "NORMAL"
)

// IndexSnapshot is the current session of one index from the provider.
type IndexSnapshot struct {
	Ticker        string    `json:"ticker"`
	Value         float64   `json:"value"`
	OpenToday     float64   `json:"open_today"`
	HighToday     float64   `json:"high_today"`
	LowToday      float64   `json:"low_today"`
	PreviousClose float64   `json:"previous_close"`
	AsOf          time.Time `json:"as_of"`
}

// Bar is one daily OHLC bar.
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Article is one raw or curated headline. Annotated with Priority during
// filtering, never mutated afterwards.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	HoursAgo    float64   `json:"hours_ago"`
	Priority    string    `json:"priority,omitempty"`
}

// VolatilityResult is the IV/RV indicator output.
type VolatilityResult struct {
	Score         int     `json:"score"`
	RealizedVol   float64 `json:"realized_vol"`
	ImpliedVol    float64 `json:"implied_vol"`
	Ratio         float64 `json:"iv_rv_ratio"`
	RVChange      float64 `json:"rv_change"`
	TermStructure string  `json:"term_structure,omitempty"` // "contango", "inverted", "strongly_inverted"
}

// TrendResult is the momentum/range indicator output.
type TrendResult struct {
	Score         int     `json:"score"`
	Change5d      float64 `json:"change_5d"`
	IntradayRange float64 `json:"intraday_range"`
}

// NewsRiskResult is the externally-assessed news-risk indicator output.
type NewsRiskResult struct {
	Score         int    `json:"score"`
	RawScore      int    `json:"raw_score"`
	Category      string `json:"category"`
	Reasoning     string `json:"reasoning"`
	KeyRisk       string `json:"key_risk"`
	DirectionRisk string `json:"direction_risk"`
}

// Decision is the terminal trading decision for one evaluation cycle.
type Decision string

const (
	TradeAggressive   Decision = "TRADE_AGGRESSIVE"
	TradeNormal       Decision = "TRADE_NORMAL"
	TradeConservative Decision = "TRADE_CONSERVATIVE"
	Skip              Decision = "SKIP"
)

// ContradictionResult is the cross-indicator consistency check output.
// OverrideDecision is empty unless a hard override fired.
type ContradictionResult struct {
	OverrideDecision Decision `json:"override_decision,omitempty"`
	OverrideReason   string   `json:"override_reason,omitempty"`
	Flags            []string `json:"flags"`
	ScoreAdjustment  float64  `json:"score_adjustment"`
}

// Composite score categories, ordered from best to worst selling conditions.
const (
	CategoryExcellent = "EXCELLENT"
	CategoryVeryGood  = "VERY_GOOD"
	CategoryGood      = "GOOD"
	CategoryFair      = "FAIR"
	CategoryElevated  = "ELEVATED"
	CategoryHigh      = "HIGH"
)

// CompositeScore is the weighted combination of the three indicator scores.
type CompositeScore struct {
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// Signal is the terminal output of one evaluation cycle.
type Signal struct {
	Decision    Decision `json:"decision"`
	ShouldTrade bool     `json:"should_trade"`
	Reason      string   `json:"reason"`
}

// Breakeven thresholds per decision tier: the overnight move (in percent)
// beyond which that tier is assumed to lose money. SKIP is "correct" when
// the move reaches the conservative breakeven.
var MoveThresholds = map[Decision]float64{
	TradeAggressive:   1.00,
	TradeNormal:       0.90,
	TradeConservative: 0.80,
	Skip:              0.80,
}

// NoTradeThreshold: a no-trade day was the right call when the overnight
// move reached this percentage.
const NoTradeThreshold = 0.80

// Trade-executed markers recorded alongside each signal. The signal alone
// does not imply a trade: gates outside the scoring path can block dispatch.
const (
	ExecutedYes         = "YES"
	ExecutedNoSkip      = "NO_SKIP"
	ExecutedNoFriday    = "NO_FRIDAY"
	ExecutedNoVIXGate   = "NO_VIX_GATE"
	ExecutedNoDuplicate = "NO_DUPLICATE"
)
