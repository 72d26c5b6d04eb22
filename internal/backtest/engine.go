package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"volsignal/internal/indicator"
	"volsignal/internal/provider"
	"volsignal/internal/signal"
	"volsignal/pkg/model"
)

// minWindowCloses is the smallest price window a date can be simulated
// on: today's close plus the returns window for realized vol.
const minWindowCloses = 12

// maxWindowCloses caps the trailing window handed to the indicators.
const maxWindowCloses = 25

// Outcome labels for a simulated day.
const (
	OutcomeCorrectTrade = "CORRECT_TRADE"
	OutcomeWrongTrade   = "WRONG_TRADE"
	OutcomeCorrectSkip  = "CORRECT_SKIP"
	OutcomeWrongSkip    = "WRONG_SKIP"
)

// Options control one backtest run.
type Options struct {
	Start     time.Time
	End       time.Time
	StubScore int
	// TradeDays restricts simulation to these weekdays. Empty means all
	// weekdays.
	TradeDays map[time.Weekday]bool
	Progress  func(done, total int)
}

// DayRecord is the simulation result for one historical date.
type DayRecord struct {
	Date       string              `json:"date"`
	SPXClose   float64             `json:"spx_close"`
	VIX1D      float64             `json:"vix1d"`
	IVRVScore  int                 `json:"iv_rv_score"`
	IVRVRatio  float64             `json:"iv_rv_ratio"`
	TrendScore int                 `json:"trend_score"`
	NewsScore  int                 `json:"news_score"`
	Composite  float64             `json:"composite"`
	Category   string              `json:"category"`
	Decision   model.Decision      `json:"decision"`
	Flags      []string            `json:"flags,omitempty"`
	NextDay    string              `json:"next_day,omitempty"`
	MovePct    float64             `json:"overnight_move_pct"`
	HasOutcome bool                `json:"has_outcome"`
	Outcome    string              `json:"outcome,omitempty"`
}

// SkippedDay reports a date that could not be simulated and why.
type SkippedDay struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// Result aggregates one run over a date range.
type Result struct {
	StubScore int          `json:"news_stub_score"`
	Records   []DayRecord  `json:"records"`
	Skipped   []SkippedDay `json:"skipped"`
}

// Classify labels a decision against the realized overnight move using
// the per-tier breakeven table. A trade survives when the move stays
// strictly below its threshold; a skip was right when the move reached
// the skip threshold.
func Classify(decision model.Decision, movePct float64) string {
	threshold, ok := model.MoveThresholds[decision]
	if !ok {
		threshold = model.NoTradeThreshold
	}
	if decision == model.Skip {
		if movePct >= threshold {
			return OutcomeCorrectSkip
		}
		return OutcomeWrongSkip
	}
	if movePct < threshold {
		return OutcomeCorrectTrade
	}
	return OutcomeWrongTrade
}

// Run replays the index history through the deterministic indicators
// with a fixed stub standing in for the news-risk score, and scores
// each decision against the realized next-day open.
func Run(ctx context.Context, p provider.Provider, opt Options) (*Result, error) {
	// Fetch extra calendar days ahead of the window so early dates still
	// have a full trailing closes window.
	fetchStart := opt.Start.AddDate(0, 0, -50)

	spxBars, err := p.DailyBars(ctx, provider.TickerSPX, fetchStart, opt.End)
	if err != nil {
		return nil, fmt.Errorf("fetching index bars: %w", err)
	}
	if len(spxBars) == 0 {
		return nil, model.ErrNoData
	}
	vixBars, err := p.DailyBars(ctx, provider.TickerVIX1D, fetchStart, opt.End)
	if err != nil {
		return nil, fmt.Errorf("fetching vol index bars: %w", err)
	}

	vixByDate := make(map[string]model.Bar, len(vixBars))
	for _, b := range vixBars {
		vixByDate[b.Date.Format("2006-01-02")] = b
	}

	sort.Slice(spxBars, func(i, j int) bool { return spxBars[i].Date.Before(spxBars[j].Date) })

	// Range membership compares calendar dates so bars keep their
	// time-of-day and zone untouched.
	startDate := opt.Start.Format("2006-01-02")
	endDate := opt.End.Format("2006-01-02")

	res := &Result{StubScore: opt.StubScore}
	newsResult := model.NewsRiskResult{
		Score:    opt.StubScore,
		RawScore: opt.StubScore,
		Category: stubCategory(opt.StubScore),
	}

	total := 0
	for _, b := range spxBars {
		if d := b.Date.Format("2006-01-02"); d >= startDate && d <= endDate {
			total++
		}
	}
	done := 0

	for idx, bar := range spxBars {
		date := bar.Date.Format("2006-01-02")
		if date < startDate || date > endDate {
			continue
		}
		done++
		if opt.Progress != nil {
			opt.Progress(done, total)
		}

		if len(opt.TradeDays) > 0 && !opt.TradeDays[bar.Date.Weekday()] {
			continue
		}

		// Trailing closes, most recent first, today included.
		lo := idx - (maxWindowCloses - 1)
		if lo < 0 {
			lo = 0
		}
		closes := make([]float64, 0, idx-lo+1)
		for j := idx; j >= lo; j-- {
			closes = append(closes, spxBars[j].Close)
		}
		if len(closes) < minWindowCloses {
			res.Skipped = append(res.Skipped, SkippedDay{date, "insufficient price history"})
			continue
		}

		vixBar, ok := vixByDate[date]
		if !ok {
			res.Skipped = append(res.Skipped, SkippedDay{date, "no vol index data"})
			continue
		}

		series := model.PriceSeries{
			Symbol:        provider.TickerSPX,
			Current:       bar.Close,
			OpenToday:     bar.Open,
			HighToday:     bar.High,
			LowToday:      bar.Low,
			PreviousClose: closes[1],
			Closes:        closes,
			AsOf:          bar.Date,
		}

		// Historical term structure is unavailable, so the reading carries
		// the short tenor only.
		volResult, err := indicator.AnalyzeIVRV(series, model.VolatilityReading{Current: vixBar.Close})
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedDay{date, err.Error()})
			continue
		}
		trendResult := indicator.AnalyzeTrend(series)

		contra, composite, sig := signal.Evaluate(volResult.Score, trendResult.Score, newsResult.Score)

		rec := DayRecord{
			Date:       date,
			SPXClose:   bar.Close,
			VIX1D:      vixBar.Close,
			IVRVScore:  volResult.Score,
			IVRVRatio:  volResult.Ratio,
			TrendScore: trendResult.Score,
			NewsScore:  newsResult.Score,
			Composite:  composite.Score,
			Category:   composite.Category,
			Decision:   sig.Decision,
			Flags:      contra.Flags,
		}

		if idx+1 < len(spxBars) {
			next := spxBars[idx+1]
			rec.NextDay = next.Date.Format("2006-01-02")
			rec.MovePct = math.Abs((next.Open-bar.Close)/bar.Close) * 100
			rec.HasOutcome = true
			rec.Outcome = Classify(sig.Decision, rec.MovePct)
		}

		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// Sweep repeats the run across a range of stub news-scores to show how
// sensitive the decision mix is to the one externally supplied input.
func Sweep(ctx context.Context, p provider.Provider, opt Options, from, to int) ([]*Result, error) {
	results := make([]*Result, 0, to-from+1)
	for score := from; score <= to; score++ {
		o := opt
		o.StubScore = score
		res, err := Run(ctx, p, o)
		if err != nil {
			return nil, fmt.Errorf("sweep at news score %d: %w", score, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func stubCategory(score int) string {
	switch {
	case score <= 2:
		return "VERY_QUIET"
	case score <= 4:
		return "QUIET"
	case score <= 6:
		return "MODERATE"
	case score <= 8:
		return "ELEVATED"
	default:
		return "EXTREME"
	}
}

// ParseTradeDays turns a comma list like "Mon,Tue,Wed,Thu" into a
// weekday set.
func ParseTradeDays(spec string) (map[time.Weekday]bool, error) {
	names := map[string]time.Weekday{
		"mon": time.Monday, "monday": time.Monday,
		"tue": time.Tuesday, "tuesday": time.Tuesday,
		"wed": time.Wednesday, "wednesday": time.Wednesday,
		"thu": time.Thursday, "thursday": time.Thursday,
		"fri": time.Friday, "friday": time.Friday,
	}
	out := make(map[time.Weekday]bool)
	for _, token := range strings.Split(spec, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		wd, ok := names[token]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", token)
		}
		out[wd] = true
	}
	return out, nil
}
