package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/pkg/model"
)

// altCloses builds n daily closes alternating 100 and 101, most recent
// first. Log returns alternate sign with zero mean, giving an annualized
// realized vol of about 16.65.
func altCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	return closes
}

func flatCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
	}
	return closes
}

func TestRealizedVol(t *testing.T) {
	t.Run("alternating series", func(t *testing.T) {
		assert.InDelta(t, 16.65, realizedVol(altCloses(11)), 0.01)
	})

	t.Run("zero variance guarded", func(t *testing.T) {
		assert.Equal(t, minRealizedVol, realizedVol(flatCloses(11)))
	})
}

func TestBaseScore(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{1.50, 1},
		{1.36, 1},
		{1.35, 2},
		{1.25, 2},
		{1.15, 3},
		{1.05, 4},
		{0.95, 6},
		{0.85, 8},
		{0.80, 10},
		{0.50, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseScore(tt.ratio), "ratio %.2f", tt.ratio)
	}
}

func TestRVChangeModifier(t *testing.T) {
	tests := []struct {
		change float64
		want   int
	}{
		{0.40, 3},
		{0.30, 2},
		{0.20, 2},
		{0.15, 0},
		{0.00, 0},
		{-0.10, 0},
		{-0.25, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rvChangeModifier(tt.change), "change %.2f", tt.change)
	}
}

func TestAnalyzeIVRV(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		_, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(10)}, model.VolatilityReading{Current: 20})
		assert.ErrorIs(t, err, model.ErrInsufficientHistory)
	})

	t.Run("rich vol scores low", func(t *testing.T) {
		got, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(21)}, model.VolatilityReading{Current: 25})
		require.NoError(t, err)
		assert.Equal(t, 1, got.Score)
		assert.InDelta(t, 16.65, got.RealizedVol, 0.01)
		assert.InDelta(t, 25.0/got.RealizedVol, got.Ratio, 1e-9)
		assert.InDelta(t, 0.0, got.RVChange, 1e-9)
		assert.Empty(t, got.TermStructure)
	})

	t.Run("cheap vol scores high", func(t *testing.T) {
		got, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(21)}, model.VolatilityReading{Current: 12})
		require.NoError(t, err)
		assert.Equal(t, 10, got.Score)
	})

	t.Run("rv change modifier needs 21 closes", func(t *testing.T) {
		got, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(11)}, model.VolatilityReading{Current: 25})
		require.NoError(t, err)
		assert.Zero(t, got.RVChange)
	})

	t.Run("term structure", func(t *testing.T) {
		tests := []struct {
			name      string
			longTenor float64
			wantTag   string
			wantScore int
		}{
			{"strong inversion", 20, TermStronglyInverted, 4},
			{"mild inversion", 24, TermInverted, 2},
			{"contango", 30, TermContango, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(21)},
					model.VolatilityReading{Current: 25, LongTenor: tt.longTenor})
				require.NoError(t, err)
				assert.Equal(t, tt.wantTag, got.TermStructure)
				assert.Equal(t, tt.wantScore, got.Score)
			})
		}
	})

	t.Run("flat series stays finite", func(t *testing.T) {
		got, err := AnalyzeIVRV(model.PriceSeries{Closes: flatCloses(21)}, model.VolatilityReading{Current: 15})
		require.NoError(t, err)
		assert.Equal(t, 1, got.Score)
		assert.False(t, got.Ratio != got.Ratio, "ratio must not be NaN")
	})

	t.Run("score always in range", func(t *testing.T) {
		for _, iv := range []float64{1, 10, 16, 20, 40} {
			got, err := AnalyzeIVRV(model.PriceSeries{Closes: altCloses(21)},
				model.VolatilityReading{Current: iv, LongTenor: iv / 1.3})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got.Score, 1)
			assert.LessOrEqual(t, got.Score, 10)
		}
	})
}
