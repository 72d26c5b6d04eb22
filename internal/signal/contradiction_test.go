package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"volsignal/pkg/model"
)

func TestDetectContradictions(t *testing.T) {
	tests := []struct {
		name           string
		ivrv           int
		trend          int
		news           int
		wantFlags      []string
		wantOverride   model.Decision
		wantAdjustment float64
	}{
		{
			name:      "all calm returns nothing",
			ivrv:      3, trend: 3, news: 3,
			wantFlags: []string{},
		},
		{
			name:      "extreme news hard override",
			ivrv:      1, trend: 1, news: 9,
			wantFlags:    []string{FlagNewsExtreme, FlagHighDispersion},
			wantOverride: model.Skip,
			// dispersion spread 9-1 also fires
			wantAdjustment: 1.0,
		},
		{
			name:      "news and trend both elevated",
			ivrv:      3, trend: 5, news: 6,
			wantFlags:      []string{FlagNewsTrendConflict},
			wantAdjustment: 1.5,
		},
		{
			name:      "high dispersion",
			ivrv:      1, trend: 7, news: 4,
			wantFlags:      []string{FlagHighDispersion},
			wantAdjustment: 1.0,
		},
		{
			name:      "cheap implied vol",
			ivrv:      8, trend: 2, news: 3,
			wantFlags:      []string{FlagHighDispersion, FlagIVCheap},
			wantAdjustment: 1.0,
		},
		{
			name:      "adjustments take the max not the sum",
			ivrv:      9, trend: 5, news: 6,
			wantFlags:      []string{FlagNewsTrendConflict, FlagIVCheap},
			wantAdjustment: 1.5,
		},
		{
			name:      "boundary: news 7 trend 4 fires nothing",
			ivrv:      4, trend: 4, news: 7,
			wantFlags: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectContradictions(tt.ivrv, tt.trend, tt.news)
			assert.Equal(t, tt.wantFlags, got.Flags)
			assert.Equal(t, tt.wantOverride, got.OverrideDecision)
			assert.InDelta(t, tt.wantAdjustment, got.ScoreAdjustment, 1e-9)
		})
	}
}

func TestExtremeNewsAlwaysSkips(t *testing.T) {
	// The override must hold regardless of the other two scores.
	for ivrv := 1; ivrv <= 10; ivrv++ {
		for trend := 1; trend <= 10; trend++ {
			got := DetectContradictions(ivrv, trend, 8)
			assert.Equal(t, model.Skip, got.OverrideDecision,
				"ivrv=%d trend=%d news=8", ivrv, trend)
		}
	}
}
