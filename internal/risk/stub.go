package risk

import (
	"context"

	"volsignal/pkg/model"
)

// StubAssessor returns a fixed score. Used by the backtest engine, where
// historical news cannot be replayed, and by sensitivity sweeps.
type StubAssessor struct {
	Score int
}

func (s StubAssessor) Assess(ctx context.Context, summary string) (model.NewsRiskResult, error) {
	return model.NewsRiskResult{
		Score:         s.Score,
		RawScore:      s.Score,
		Category:      "STUB",
		Reasoning:     "fixed stub score, historical news not replayable",
		DirectionRisk: "UNKNOWN",
	}, nil
}
