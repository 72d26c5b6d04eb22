package signal

import (
	"math"

	"volsignal/pkg/model"
)

// Contradiction flag names, in the order the rules are evaluated.
const (
	FlagNewsExtreme       = "NEWS_EXTREME"
	FlagNewsTrendConflict = "NEWS_TREND_CONFLICT"
	FlagHighDispersion    = "HIGH_DISPERSION"
	FlagIVCheap           = "IV_CHEAP"
)

// DetectContradictions cross-checks the three indicator scores. Extreme
// news risk is a hard override to SKIP. The remaining rules each propose a
// score adjustment; the result carries the largest one triggered rather
// than their sum, so multiple mild conflicts cannot stack into an
// automatic SKIP on their own. All triggered rule names are returned in
// evaluation order.
func DetectContradictions(ivrv, trend, news int) model.ContradictionResult {
	var result model.ContradictionResult
	result.Flags = []string{}

	if news >= 8 {
		result.Flags = append(result.Flags, FlagNewsExtreme)
		result.OverrideDecision = model.Skip
		result.OverrideReason = "extreme news risk overrides all other signals"
	}

	var adjustment float64
	if news >= 6 && trend >= 5 {
		result.Flags = append(result.Flags, FlagNewsTrendConflict)
		adjustment = math.Max(adjustment, 1.5)
	}

	scores := []int{ivrv, trend, news}
	if maxInt(scores)-minInt(scores) >= 6 {
		result.Flags = append(result.Flags, FlagHighDispersion)
		adjustment = math.Max(adjustment, 1.0)
	}

	if ivrv >= 8 {
		result.Flags = append(result.Flags, FlagIVCheap)
		adjustment = math.Max(adjustment, 1.0)
	}

	result.ScoreAdjustment = adjustment
	return result
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
