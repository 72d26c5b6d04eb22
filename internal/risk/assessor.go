package risk

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"volsignal/internal/news"
	"volsignal/pkg/model"
)

// FallbackScore is substituted whenever no assessment is available: no
// news, a failed call, or an unparseable response. Elevated rather than
// neutral, since a missing signal must never look safe.
const FallbackScore = 7

// Assessor scores overnight news risk from a curated headline summary.
type Assessor interface {
	Assess(ctx context.Context, summary string) (model.NewsRiskResult, error)
}

// Fallback is the fixed conservative result used when no assessment
// can be made.
func Fallback(reason string) model.NewsRiskResult {
	return model.NewsRiskResult{
		Score:         FallbackScore,
		RawScore:      FallbackScore,
		Category:      "ELEVATED",
		Reasoning:     reason,
		KeyRisk:       "None",
		DirectionRisk: "UNKNOWN",
	}
}

// Evaluate runs the assessor over the pipeline output. Zero curated
// articles skips the external call entirely; any assessor failure
// degrades to the fixed conservative fallback. The second return value
// reports whether the fallback was used.
func Evaluate(ctx context.Context, a Assessor, pipeline news.Result) (model.NewsRiskResult, bool) {
	if pipeline.Count == 0 {
		log.Info().Msg("news risk: no actionable news, using elevated default")
		return Fallback("no actionable news available, defaulting to elevated risk"), true
	}

	result, err := a.Assess(ctx, pipeline.Summary)
	if err != nil {
		log.Warn().Err(err).Msg("news risk: assessment failed, using elevated default")
		return Fallback("assessment unavailable, defaulting to elevated risk"), true
	}
	return result, false
}

// calibrate nudges mid-range raw scores toward the middle. Extremes are
// kept as-is so a 9 or 10 still forces the hard override downstream.
func calibrate(raw int) int {
	c := float64(raw)
	switch {
	case raw >= 9:
	case raw >= 7:
		c -= 0.5
	case raw <= 3:
		c += 0.5
	}
	return clampScore(int(math.Round(c)))
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
