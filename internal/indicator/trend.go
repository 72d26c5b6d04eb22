package indicator

import (
	"math"

	"volsignal/pkg/model"
)

// AnalyzeTrend scores short-term momentum plus intraday range. Moves in
// either direction are equally dangerous to a short-volatility position,
// so the five-day change is scored by absolute magnitude.
func AnalyzeTrend(series model.PriceSeries) model.TrendResult {
	ref := series.Current
	if len(series.Closes) >= 6 {
		ref = series.Closes[5]
	}

	var change5d float64
	if ref != 0 {
		change5d = (series.Current - ref) / ref * 100
	}

	score := trendBase(math.Abs(change5d))

	var intradayRange float64
	if series.Current != 0 {
		intradayRange = (series.HighToday - series.LowToday) / series.Current * 100
	}
	switch {
	case intradayRange > 1.5:
		score += 2
	case intradayRange > 1.0:
		score++
	}

	return model.TrendResult{
		Score:         clampScore(score),
		Change5d:      change5d,
		IntradayRange: intradayRange,
	}
}

func trendBase(absChange float64) int {
	switch {
	case absChange > 4:
		return 7
	case absChange > 2:
		return 4
	case absChange > 1:
		return 2
	default:
		return 1
	}
}
