package risk

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"volsignal/internal/news"
	"volsignal/pkg/model"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{10, 10},
		{9, 9},
		{8, 8}, // 7.5 rounds back up
		{7, 7}, // 6.5 rounds back up
		{6, 6},
		{5, 5},
		{4, 4},
		{3, 4},
		{2, 3},
		{1, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calibrate(tt.raw), "raw %d", tt.raw)
	}
}

func TestFallback(t *testing.T) {
	got := Fallback("no analysis")
	assert.Equal(t, FallbackScore, got.Score)
	assert.Equal(t, "ELEVATED", got.Category)
	assert.Equal(t, "UNKNOWN", got.DirectionRisk)
}

type errorAssessor struct{}

func (errorAssessor) Assess(ctx context.Context, summary string) (model.NewsRiskResult, error) {
	return model.NewsRiskResult{}, fmt.Errorf("boom")
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("zero articles skips the call", func(t *testing.T) {
		got, fallback := Evaluate(ctx, StubAssessor{Score: 2}, news.Result{})
		assert.True(t, fallback)
		assert.Equal(t, FallbackScore, got.Score)
		assert.Equal(t, "ELEVATED", got.Category)
	})

	t.Run("assessor result passes through", func(t *testing.T) {
		got, fallback := Evaluate(ctx, StubAssessor{Score: 4}, news.Result{Count: 3, Summary: "headlines"})
		assert.False(t, fallback)
		assert.Equal(t, 4, got.Score)
	})

	t.Run("assessor failure degrades to fallback", func(t *testing.T) {
		got, fallback := Evaluate(ctx, errorAssessor{}, news.Result{Count: 3, Summary: "headlines"})
		assert.True(t, fallback)
		assert.Equal(t, FallbackScore, got.Score)
		assert.Equal(t, "ELEVATED", got.Category)
	})
}
