package outcome

import (
	"sort"

	"volsignal/internal/journal"
	"volsignal/pkg/model"
)

// SignalChange records one day where a later evaluation disagreed with
// the decision evaluation.
type SignalChange struct {
	Date         string
	First        model.Decision
	Later        model.Decision
	MovePct      float64
	FirstResult  string
	LaterResult  string
	ArticleDelta int
}

// Stability summarizes whether waiting inside the trading window would
// have produced better calls. The earliest evaluation per date is the
// decision; later ones are validation passes.
type Stability struct {
	TotalDates  int
	AllAgree    int
	FirstBetter int
	LaterBetter int
	SameOutcome int
	Changes     []SignalChange
}

// AnalyzeStability groups all journaled evaluations by trade date and
// scores the decision evaluation against the latest same-day evaluation
// using each signal's counterfactual outcome for the realized move.
// Dates with a single evaluation or no resolved outcome are ignored.
func AnalyzeStability(entries []journal.Entry) *Stability {
	byDate := make(map[string][]journal.Entry)
	for _, e := range entries {
		if e.TradeDate == "" || e.Signal.Decision == "" {
			continue
		}
		byDate[e.TradeDate] = append(byDate[e.TradeDate], e)
	}

	dates := make([]string, 0, len(byDate))
	for d, group := range byDate {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		byDate[d] = group
		if len(group) >= 2 && group[0].Outcome != nil {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	st := &Stability{}
	for _, d := range dates {
		group := byDate[d]
		decision := group[0]
		move := decision.Outcome.MovePct

		agree := true
		for _, e := range group[1:] {
			if e.Signal.Decision != decision.Signal.Decision {
				agree = false
				break
			}
		}
		st.TotalDates++
		if agree {
			st.AllAgree++
			st.SameOutcome++
			continue
		}

		latest := group[len(group)-1]
		firstResult := Hypothetical(decision.Signal.Decision, move)
		laterResult := Hypothetical(latest.Signal.Decision, move)

		switch {
		case firstResult == laterResult:
			st.SameOutcome++
		case firstResult == "CORRECT":
			st.FirstBetter++
		default:
			st.LaterBetter++
		}

		st.Changes = append(st.Changes, SignalChange{
			Date:         d,
			First:        decision.Signal.Decision,
			Later:        latest.Signal.Decision,
			MovePct:      move,
			FirstResult:  firstResult,
			LaterResult:  laterResult,
			ArticleDelta: latest.ArticlesSent - decision.ArticlesSent,
		})
	}

	return st
}
