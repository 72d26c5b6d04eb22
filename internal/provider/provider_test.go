package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/pkg/model"
)

// fakeProvider serves canned data or a fixed error.
type fakeProvider struct {
	name      string
	available bool
	err       error
	snapshot  model.IndexSnapshot
	closes    []float64

	calls []string
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) IsAvailable() bool { return f.available }

func (f *fakeProvider) Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error) {
	f.calls = append(f.calls, ticker)
	if f.err != nil {
		return model.IndexSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func (f *fakeProvider) DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	f.calls = append(f.calls, ticker)
	if f.err != nil {
		return nil, f.err
	}
	return f.closes, nil
}

func (f *fakeProvider) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	return nil, f.err
}

func (f *fakeProvider) DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error) {
	return model.Bar{}, f.err
}

func (f *fakeProvider) MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error) {
	return 0, f.err
}

func TestFallbackProviderSkipsUnavailable(t *testing.T) {
	down := &fakeProvider{name: "polygon", available: false}
	up := &fakeProvider{name: "yahoo", available: true, snapshot: model.IndexSnapshot{Value: 5500}}

	f := NewFallbackProvider(down, up)
	require.True(t, f.IsAvailable())
	assert.Len(t, f.Providers(), 1)

	snap, err := f.Snapshot(context.Background(), TickerSPX)
	require.NoError(t, err)
	assert.Equal(t, 5500.0, snap.Value)
}

func TestFallbackProviderTriesInOrder(t *testing.T) {
	failing := &fakeProvider{name: "polygon", available: true, err: fmt.Errorf("down")}
	working := &fakeProvider{name: "yahoo", available: true, snapshot: model.IndexSnapshot{Value: 5500}}

	f := NewFallbackProvider(failing, working)
	snap, err := f.Snapshot(context.Background(), TickerSPX)
	require.NoError(t, err)
	assert.Equal(t, 5500.0, snap.Value)
	assert.Len(t, failing.calls, 1)
}

func TestFallbackProviderTranslatesTickers(t *testing.T) {
	yahoo := &fakeProvider{name: "yahoo", available: true, snapshot: model.IndexSnapshot{Value: 14.2}}

	f := NewFallbackProvider(yahoo)
	_, err := f.Snapshot(context.Background(), TickerVIX1D)
	require.NoError(t, err)
	require.Len(t, yahoo.calls, 1)
	assert.Equal(t, YahooVIX1D, yahoo.calls[0])
}

func TestFallbackProviderReturnsLastError(t *testing.T) {
	a := &fakeProvider{name: "polygon", available: true, err: fmt.Errorf("a down")}
	b := &fakeProvider{name: "yahoo", available: true, err: fmt.Errorf("b down")}

	f := NewFallbackProvider(a, b)
	_, err := f.DailyCloses(context.Background(), TickerSPX, 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
}

func TestFetchSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 5500 - float64(i)
	}
	p := &fakeProvider{
		name: "polygon", available: true,
		snapshot: model.IndexSnapshot{
			Value: 5510, OpenToday: 5490, HighToday: 5515, LowToday: 5485, PreviousClose: 5500,
		},
		closes: closes,
	}

	series, err := FetchSeries(context.Background(), p, TickerSPX, 25)
	require.NoError(t, err)
	assert.Equal(t, 5510.0, series.Current)
	assert.Len(t, series.Closes, 25)
	assert.NoError(t, series.Validate())
}

func TestFetchSeriesRejectsShortHistory(t *testing.T) {
	p := &fakeProvider{
		name: "polygon", available: true,
		snapshot: model.IndexSnapshot{Value: 5510, HighToday: 5515, LowToday: 5485},
		closes:   []float64{5500, 5499},
	}

	_, err := FetchSeries(context.Background(), p, TickerSPX, 25)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}
