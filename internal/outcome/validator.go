package outcome

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volsignal/internal/journal"
	"volsignal/internal/provider"
	"volsignal/pkg/model"
)

// maxHolidayAdvances bounds how far past a market holiday the validator
// walks looking for the next session.
const maxHolidayAdvances = 5

// Exit reference time: the next session's fixed intraday exit, ET.
const (
	exitHour   = 10
	exitMinute = 0
)

// Validator backfills realized outcomes into the journal. Re-running is
// safe: entries already carrying an outcome are not touched.
type Validator struct {
	provider provider.Provider
	store    journal.Store
	loc      *time.Location
	now      func() time.Time
}

func NewValidator(p provider.Provider, store journal.Store, loc *time.Location) *Validator {
	return &Validator{provider: p, store: store, loc: loc, now: time.Now}
}

// Resolved pairs a journal entry with its freshly computed outcome.
type Resolved struct {
	Entry   journal.Entry
	Outcome journal.Outcome
	NextDay string
}

// SkippedRow reports an entry that could not be resolved and why.
type SkippedRow struct {
	ID     string
	Date   string
	Reason string
}

// BackfillResult summarizes one validator run.
type BackfillResult struct {
	Resolved []Resolved
	Skipped  []SkippedRow
}

// Backfill resolves every pending journal entry that has a completed
// next trading day. dryRun computes outcomes without writing them.
func (v *Validator) Backfill(ctx context.Context, dryRun bool) (*BackfillResult, error) {
	pending, err := v.store.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pending entries: %w", err)
	}

	res := &BackfillResult{}
	today := v.now().In(v.loc).Format("2006-01-02")

	for _, entry := range pending {
		if entry.SPX <= 0 {
			res.Skipped = append(res.Skipped, SkippedRow{entry.ID, entry.TradeDate, "no entry price"})
			continue
		}

		nextDay := nextWeekday(entry.Timestamp.In(v.loc))
		if nextDay.Format("2006-01-02") >= today {
			res.Skipped = append(res.Skipped, SkippedRow{entry.ID, entry.TradeDate, "next session not complete yet"})
			continue
		}

		bar, actualDay, err := v.fetchNextSession(ctx, nextDay)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{entry.ID, entry.TradeDate, err.Error()})
			continue
		}

		exitPrice, exitSource := v.exitPrice(ctx, actualDay, bar)
		movePct := math.Abs((exitPrice-entry.SPX)/entry.SPX) * 100

		o := journal.Outcome{
			ExitPrice:   exitPrice,
			ExitSource:  exitSource,
			NextClose:   bar.Close,
			MovePct:     movePct,
			Verdict:     Classify(entry.Signal.Decision, entry.TradeExecuted, movePct),
			ValidatedAt: v.now(),
		}

		if !dryRun {
			if err := v.store.RecordOutcome(ctx, entry.ID, o); err != nil {
				res.Skipped = append(res.Skipped, SkippedRow{entry.ID, entry.TradeDate, err.Error()})
				continue
			}
		}

		log.Info().
			Str("date", entry.TradeDate).
			Str("signal", string(entry.Signal.Decision)).
			Str("executed", entry.TradeExecuted).
			Float64("move_pct", movePct).
			Str("verdict", o.Verdict).
			Msg("outcome resolved")

		res.Resolved = append(res.Resolved, Resolved{
			Entry:   entry,
			Outcome: o,
			NextDay: actualDay.Format("2006-01-02"),
		})
	}

	return res, nil
}

// fetchNextSession walks forward from date past weekends and holidays
// until a session with data appears, bounded by maxHolidayAdvances.
func (v *Validator) fetchNextSession(ctx context.Context, date time.Time) (model.Bar, time.Time, error) {
	day := date
	for attempt := 0; attempt <= maxHolidayAdvances; attempt++ {
		bar, err := v.provider.DayBar(ctx, provider.TickerSPX, day)
		if err == nil {
			return bar, day, nil
		}
		if !errors.Is(err, model.ErrNoData) {
			return model.Bar{}, time.Time{}, fmt.Errorf("fetching %s: %w", day.Format("2006-01-02"), err)
		}
		day = nextWeekday(day)
	}
	return model.Bar{}, time.Time{}, fmt.Errorf("no session data within %d days of %s",
		maxHolidayAdvances, date.Format("2006-01-02"))
}

// exitPrice prefers the fixed intraday exit from minute bars and falls
// back to the session open.
func (v *Validator) exitPrice(ctx context.Context, day time.Time, bar model.Bar) (float64, string) {
	at := time.Date(day.Year(), day.Month(), day.Day(), exitHour, exitMinute, 0, 0, v.loc)
	price, err := v.provider.MinutePrice(ctx, provider.TickerSPX, at)
	if err == nil && price > 0 {
		return price, "10am"
	}
	return bar.Open, "open"
}

// Classify labels the realized move against what actually happened: an
// executed trade is scored on its tier's breakeven, while any blocked or
// skipped day is scored on whether staying out paid.
func Classify(decision model.Decision, executed string, movePct float64) string {
	if executed == model.ExecutedYes {
		threshold, ok := model.MoveThresholds[decision]
		if !ok {
			threshold = model.NoTradeThreshold
		}
		if movePct < threshold {
			return "CORRECT_TRADE"
		}
		return "WRONG_TRADE"
	}

	correct := movePct >= model.NoTradeThreshold
	var tag string
	switch {
	case executed == model.ExecutedNoSkip:
		tag = "SKIP"
	case executed == model.ExecutedNoFriday:
		tag = "FRIDAY"
	case strings.HasPrefix(executed, model.ExecutedNoVIXGate):
		tag = "VIX_GATE"
	default:
		tag = "NO_TRADE"
	}
	if correct {
		return "CORRECT_" + tag
	}
	return "WRONG_" + tag
}

// Hypothetical labels what a signal would have produced against the same
// realized move, ignoring gates. Used for poke stability comparisons.
func Hypothetical(decision model.Decision, movePct float64) string {
	if decision == model.Skip {
		if movePct >= model.NoTradeThreshold {
			return "CORRECT"
		}
		return "WRONG"
	}
	threshold, ok := model.MoveThresholds[decision]
	if !ok {
		threshold = model.NoTradeThreshold
	}
	if movePct < threshold {
		return "CORRECT"
	}
	return "WRONG"
}

func nextWeekday(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
