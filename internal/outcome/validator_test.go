package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/internal/journal"
	"volsignal/pkg/model"
)

// marketHistory fakes the provider with per-date day bars and minute
// prices. Dates absent from days behave like holidays.
type marketHistory struct {
	days    map[string]model.Bar
	minutes map[string]float64
}

func (m *marketHistory) Name() string      { return "history" }
func (m *marketHistory) IsAvailable() bool { return true }

func (m *marketHistory) Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error) {
	return model.IndexSnapshot{}, model.ErrNoData
}

func (m *marketHistory) DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	return nil, model.ErrNoData
}

func (m *marketHistory) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	return nil, model.ErrNoData
}

func (m *marketHistory) DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error) {
	bar, ok := m.days[date.Format("2006-01-02")]
	if !ok {
		return model.Bar{}, model.ErrNoData
	}
	return bar, nil
}

func (m *marketHistory) MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error) {
	price, ok := m.minutes[at.Format("2006-01-02")]
	if !ok {
		return 0, model.ErrNoData
	}
	return price, nil
}

// recordingStore keeps pending entries in memory and records backfills.
type recordingStore struct {
	journal.Noop
	pending  []journal.Entry
	recorded map[string]journal.Outcome
}

func (r *recordingStore) Pending(ctx context.Context) ([]journal.Entry, error) {
	return r.pending, nil
}

func (r *recordingStore) RecordOutcome(ctx context.Context, id string, o journal.Outcome) error {
	if r.recorded == nil {
		r.recorded = make(map[string]journal.Outcome)
	}
	if _, ok := r.recorded[id]; !ok {
		r.recorded[id] = o
	}
	return nil
}

func sessionBar(t *testing.T, date string, open, close float64) model.Bar {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return model.Bar{Date: d, Open: open, Close: close}
}

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func pendingEntry(t *testing.T, loc *time.Location, id string, day time.Time, decision model.Decision, executed string, spx float64) journal.Entry {
	t.Helper()
	return journal.Entry{
		ID:            id,
		Timestamp:     time.Date(day.Year(), day.Month(), day.Day(), 14, 30, 0, 0, loc),
		TradeDate:     day.Format("2006-01-02"),
		Signal:        model.Signal{Decision: decision, ShouldTrade: decision != model.Skip},
		SPX:           spx,
		TradeExecuted: executed,
	}
}

func newTestValidator(t *testing.T, prov *marketHistory, store *recordingStore) *Validator {
	t.Helper()
	loc := nyLoc(t)
	v := NewValidator(prov, store, loc)
	// Fixed clock well past every test date.
	v.now = func() time.Time { return time.Date(2026, 7, 1, 9, 0, 0, 0, loc) }
	return v
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		decision model.Decision
		executed string
		move     float64
		want     string
	}{
		{"executed trade survives", model.TradeAggressive, model.ExecutedYes, 0.95, "CORRECT_TRADE"},
		{"executed trade blown at threshold", model.TradeAggressive, model.ExecutedYes, 1.00, "WRONG_TRADE"},
		{"conservative blown at 0.80", model.TradeConservative, model.ExecutedYes, 0.80, "WRONG_TRADE"},
		{"skip right on big move", model.Skip, model.ExecutedNoSkip, 0.80, "CORRECT_SKIP"},
		{"skip wasted on quiet night", model.Skip, model.ExecutedNoSkip, 0.10, "WRONG_SKIP"},
		{"friday block scored on stay-out threshold", model.TradeNormal, model.ExecutedNoFriday, 1.20, "CORRECT_FRIDAY"},
		{"friday block missed opportunity", model.TradeNormal, model.ExecutedNoFriday, 0.30, "WRONG_FRIDAY"},
		{"vix gate vindicated", model.TradeAggressive, model.ExecutedNoVIXGate, 0.90, "CORRECT_VIX_GATE"},
		{"duplicate scored as generic no-trade", model.TradeNormal, model.ExecutedNoDuplicate, 0.50, "WRONG_NO_TRADE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.decision, tt.executed, tt.move))
		})
	}
}

func TestHypothetical(t *testing.T) {
	assert.Equal(t, "CORRECT", Hypothetical(model.Skip, 1.10))
	assert.Equal(t, "WRONG", Hypothetical(model.Skip, 0.50))
	assert.Equal(t, "CORRECT", Hypothetical(model.TradeAggressive, 0.99))
	assert.Equal(t, "WRONG", Hypothetical(model.TradeAggressive, 1.10))
	assert.Equal(t, "WRONG", Hypothetical(model.TradeConservative, 0.80))
}

func TestBackfillResolvesWithIntradayExit(t *testing.T) {
	loc := nyLoc(t)
	// Monday trade, Tuesday exit.
	monday := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	prov := &marketHistory{
		days:    map[string]model.Bar{"2026-06-16": sessionBar(t, "2026-06-16", 5010, 5030)},
		minutes: map[string]float64{"2026-06-16": 5020},
	}
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", monday, model.TradeNormal, model.ExecutedYes, 5000),
	}}

	v := newTestValidator(t, prov, store)
	res, err := v.Backfill(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	require.Empty(t, res.Skipped)

	o := store.recorded["a"]
	assert.Equal(t, 5020.0, o.ExitPrice)
	assert.Equal(t, "10am", o.ExitSource)
	assert.Equal(t, 5030.0, o.NextClose)
	// |5020-5000|/5000 = 0.40%, under the 0.90% normal threshold.
	assert.InDelta(t, 0.40, o.MovePct, 0.0001)
	assert.Equal(t, "CORRECT_TRADE", o.Verdict)
}

func TestBackfillFallsBackToOpen(t *testing.T) {
	loc := nyLoc(t)
	monday := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	prov := &marketHistory{
		days: map[string]model.Bar{"2026-06-16": sessionBar(t, "2026-06-16", 5055, 5060)},
	}
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", monday, model.TradeAggressive, model.ExecutedYes, 5000),
	}}

	v := newTestValidator(t, prov, store)
	res, err := v.Backfill(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)

	o := store.recorded["a"]
	assert.Equal(t, 5055.0, o.ExitPrice)
	assert.Equal(t, "open", o.ExitSource)
	// 1.10% move blows through the 1.00% aggressive breakeven.
	assert.Equal(t, "WRONG_TRADE", o.Verdict)
}

func TestBackfillSkipsWeekendAndHolidays(t *testing.T) {
	loc := nyLoc(t)
	// Friday trade; Monday is a holiday, Tuesday has data.
	friday := time.Date(2026, 6, 19, 0, 0, 0, 0, loc)
	prov := &marketHistory{
		days: map[string]model.Bar{"2026-06-23": sessionBar(t, "2026-06-23", 5040, 5045)},
	}
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", friday, model.TradeNormal, model.ExecutedNoFriday, 5000),
	}}

	v := newTestValidator(t, prov, store)
	res, err := v.Backfill(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "2026-06-23", res.Resolved[0].NextDay)
	// 0.80% move means the Friday block was the right call.
	assert.Equal(t, "CORRECT_FRIDAY", store.recorded["a"].Verdict)
}

func TestBackfillGivesUpAfterBoundedRetries(t *testing.T) {
	loc := nyLoc(t)
	monday := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	prov := &marketHistory{days: map[string]model.Bar{}}
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", monday, model.TradeNormal, model.ExecutedYes, 5000),
	}}

	v := newTestValidator(t, prov, store)
	res, err := v.Backfill(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "no session data")
	assert.Empty(t, store.recorded)
}

func TestBackfillLeavesFutureEntriesAlone(t *testing.T) {
	loc := nyLoc(t)
	// Entry on the validator's "today": next session has not completed.
	today := time.Date(2026, 6, 30, 0, 0, 0, 0, loc)
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", today, model.TradeNormal, model.ExecutedYes, 5000),
	}}

	v := newTestValidator(t, &marketHistory{}, store)
	res, err := v.Backfill(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "not complete")
}

func TestBackfillDryRunWritesNothing(t *testing.T) {
	loc := nyLoc(t)
	monday := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	prov := &marketHistory{
		days: map[string]model.Bar{"2026-06-16": sessionBar(t, "2026-06-16", 5010, 5030)},
	}
	store := &recordingStore{pending: []journal.Entry{
		pendingEntry(t, loc, "a", monday, model.TradeNormal, model.ExecutedYes, 5000),
	}}

	v := newTestValidator(t, prov, store)
	res, err := v.Backfill(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Empty(t, store.recorded)
}
