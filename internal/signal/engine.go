package signal

import (
	"fmt"
	"math"

	"volsignal/pkg/model"
)

// Composite weights. News risk dominates because it is the only signal
// that sees tomorrow rather than the trailing window.
const (
	weightIVRV  = 0.30
	weightTrend = 0.20
	weightNews  = 0.50
)

// Compose weights the three indicator scores into one composite, applies
// the contradiction adjustment, rounds to one decimal and clamps to
// [1, 10].
func Compose(ivrv, trend, news int, contra model.ContradictionResult) model.CompositeScore {
	raw := float64(ivrv)*weightIVRV + float64(trend)*weightTrend + float64(news)*weightNews
	raw += contra.ScoreAdjustment

	score := math.Round(raw*10) / 10
	if score < 1.0 {
		score = 1.0
	}
	if score > 10.0 {
		score = 10.0
	}

	return model.CompositeScore{Score: score, Category: category(score)}
}

func category(score float64) string {
	switch {
	case score < 2.5:
		return model.CategoryExcellent
	case score < 3.5:
		return model.CategoryVeryGood
	case score < 5.0:
		return model.CategoryGood
	case score < 6.5:
		return model.CategoryFair
	case score < 7.5:
		return model.CategoryElevated
	default:
		return model.CategoryHigh
	}
}

// Generate maps the composite score to the terminal signal. A hard
// override from the contradiction detector wins unconditionally.
func Generate(composite model.CompositeScore, contra model.ContradictionResult) model.Signal {
	if contra.OverrideDecision != "" {
		return model.Signal{
			Decision:    contra.OverrideDecision,
			ShouldTrade: false,
			Reason:      fmt.Sprintf("override: %s (composite %.1f)", contra.OverrideReason, composite.Score),
		}
	}

	switch {
	case composite.Score >= 7.5:
		return model.Signal{
			Decision: model.Skip,
			Reason:   fmt.Sprintf("composite %.1f: risk too high to sell volatility", composite.Score),
		}
	case composite.Score >= 5.0:
		return model.Signal{
			Decision:    model.TradeConservative,
			ShouldTrade: true,
			Reason:      fmt.Sprintf("composite %.1f: elevated risk, trade small", composite.Score),
		}
	case composite.Score >= 3.5:
		return model.Signal{
			Decision:    model.TradeNormal,
			ShouldTrade: true,
			Reason:      fmt.Sprintf("composite %.1f: normal conditions", composite.Score),
		}
	default:
		return model.Signal{
			Decision:    model.TradeAggressive,
			ShouldTrade: true,
			Reason:      fmt.Sprintf("composite %.1f: favorable conditions for selling volatility", composite.Score),
		}
	}
}

// Evaluate runs the contradiction check, composite scorer and signal
// generator in one step.
func Evaluate(ivrv, trend, news int) (model.ContradictionResult, model.CompositeScore, model.Signal) {
	contra := DetectContradictions(ivrv, trend, news)
	composite := Compose(ivrv, trend, news, contra)
	return contra, composite, Generate(composite, contra)
}
