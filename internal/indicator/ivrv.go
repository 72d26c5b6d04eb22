package indicator

import (
	"fmt"
	"math"

	"volsignal/pkg/model"
)

// rvWindow is the trailing log-return window for realized volatility.
const rvWindow = 10

// minRealizedVol substitutes for a zero-variance window so the IV/RV
// ratio stays finite.
const minRealizedVol = 1e-6

// Term structure tags for the short/long tenor relationship.
const (
	TermContango         = "contango"
	TermInverted         = "inverted"
	TermStronglyInverted = "strongly_inverted"
)

// AnalyzeIVRV scores how rich implied volatility is versus recent realized
// movement. Higher ratio means vol is priced rich relative to actual
// movement, which is safer to sell, so the score is lower. A rising
// realized vol and an inverted term structure both push the score up.
func AnalyzeIVRV(series model.PriceSeries, reading model.VolatilityReading) (model.VolatilityResult, error) {
	if len(series.Closes) < model.MinClosesRV {
		return model.VolatilityResult{}, fmt.Errorf("iv/rv needs %d closes, have %d: %w",
			model.MinClosesRV, len(series.Closes), model.ErrInsufficientHistory)
	}

	rv := realizedVol(series.Closes[:rvWindow+1])
	ratio := reading.Current / rv

	score := baseScore(ratio)

	result := model.VolatilityResult{
		RealizedVol: rv,
		ImpliedVol:  reading.Current,
		Ratio:       ratio,
	}

	if len(series.Closes) >= model.MinClosesRVChange {
		prior := realizedVol(series.Closes[rvWindow : 2*rvWindow+1])
		result.RVChange = (rv - prior) / prior
		score += rvChangeModifier(result.RVChange)
	}

	if reading.LongTenor > 0 {
		tsRatio := reading.Current / reading.LongTenor
		switch {
		case tsRatio > 1.20:
			result.TermStructure = TermStronglyInverted
			score += 3
		case tsRatio > 1.0:
			result.TermStructure = TermInverted
			score++
		default:
			result.TermStructure = TermContango
		}
	}

	result.Score = clampScore(score)
	return result, nil
}

// realizedVol annualizes the sample standard deviation of daily log
// returns over the given closes, most-recent-first. Returned in
// percentage points.
func realizedVol(closes []float64) float64 {
	n := len(closes) - 1
	returns := make([]float64, n)
	for i := 0; i < n; i++ {
		returns[i] = math.Log(closes[i] / closes[i+1])
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)

	rv := math.Sqrt(variance) * math.Sqrt(252) * 100
	if rv < minRealizedVol {
		return minRealizedVol
	}
	return rv
}

// baseScore maps the IV/RV ratio to risk: the richer implied vol trades
// versus realized, the safer the short.
func baseScore(ratio float64) int {
	switch {
	case ratio > 1.35:
		return 1
	case ratio > 1.20:
		return 2
	case ratio > 1.10:
		return 3
	case ratio > 1.00:
		return 4
	case ratio > 0.90:
		return 6
	case ratio > 0.80:
		return 8
	default:
		return 10
	}
}

// rvChangeModifier penalizes a realized vol that is ramping up versus the
// prior window and gives mild credit when it is collapsing.
func rvChangeModifier(change float64) int {
	switch {
	case change > 0.30:
		return 3
	case change > 0.15:
		return 2
	case change < -0.20:
		return -1
	default:
		return 0
	}
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
