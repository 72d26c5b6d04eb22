package outcome

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"volsignal/internal/journal"
	"volsignal/pkg/model"
)

// PrintBackfill writes the per-row backfill log for one validator run.
func PrintBackfill(w io.Writer, res *BackfillResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "DRY RUN - "
	}
	for _, r := range res.Resolved {
		fmt.Fprintf(w, "  %s | %s | executed=%s | exit=%.2f (%s) | move=%.4f%% | %s\n",
			r.Entry.TradeDate, r.Entry.Signal.Decision, r.Entry.TradeExecuted,
			r.Outcome.ExitPrice, r.Outcome.ExitSource, r.Outcome.MovePct, r.Outcome.Verdict)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  %s: skipped (%s)\n", s.Date, s.Reason)
	}
	fmt.Fprintf(w, "\n%sResolved %d entries, skipped %d\n", prefix, len(res.Resolved), len(res.Skipped))
}

// PrintAccuracyReport writes the full accuracy report over all resolved
// journal entries, split by whether a trade actually went out.
func PrintAccuracyReport(w io.Writer, entries []journal.Entry) {
	resolved := make([]journal.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Outcome != nil {
			resolved = append(resolved, e)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, "  SIGNAL ACCURACY REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 70))

	if len(resolved) == 0 {
		fmt.Fprintln(w, "\n  No resolved outcomes yet. Run a backfill first.")
		return
	}

	var traded, notTraded []journal.Entry
	correct := 0
	for _, e := range resolved {
		if isCorrect(e.Outcome.Verdict) {
			correct++
		}
		if e.TradeExecuted == model.ExecutedYes {
			traded = append(traded, e)
		} else {
			notTraded = append(notTraded, e)
		}
	}

	fmt.Fprintf(w, "\n  Total signals: %d | Traded: %d | Not traded: %d\n",
		len(resolved), len(traded), len(notTraded))
	fmt.Fprintf(w, "  Overall accuracy: %d/%d (%.1f%%)\n", correct, len(resolved),
		float64(correct)/float64(len(resolved))*100)

	printTraded(w, traded)
	printNotTraded(w, notTraded)
	printDistribution(w, resolved)
	PrintStability(w, AnalyzeStability(entries))
}

func printTraded(w io.Writer, traded []journal.Entry) {
	if len(traded) == 0 {
		return
	}
	survived := 0
	for _, e := range traded {
		if isCorrect(e.Outcome.Verdict) {
			survived++
		}
	}
	fmt.Fprintf(w, "\n  ACTUALLY TRADED (%d days)\n", len(traded))
	fmt.Fprintf(w, "  Trade survival: %d/%d (%.1f%%)\n", survived, len(traded),
		float64(survived)/float64(len(traded))*100)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Tier", "Correct", "Threshold", "Avg Move", "Max Move"}),
	)
	for _, tier := range []model.Decision{model.TradeAggressive, model.TradeNormal, model.TradeConservative} {
		var n, ok int
		var sum, max float64
		for _, e := range traded {
			if e.Signal.Decision != tier {
				continue
			}
			n++
			sum += e.Outcome.MovePct
			if e.Outcome.MovePct > max {
				max = e.Outcome.MovePct
			}
			if isCorrect(e.Outcome.Verdict) {
				ok++
			}
		}
		if n == 0 {
			continue
		}
		table.Append([]string{
			string(tier),
			fmt.Sprintf("%d/%d", ok, n),
			fmt.Sprintf("%.2f%%", model.MoveThresholds[tier]),
			fmt.Sprintf("%.4f%%", sum/float64(n)),
			fmt.Sprintf("%.4f%%", max),
		})
	}
	table.Render()

	for _, e := range traded {
		if !isCorrect(e.Outcome.Verdict) {
			fmt.Fprintf(w, "    blown: %s %s move=%.4f%%\n",
				e.TradeDate, e.Signal.Decision, e.Outcome.MovePct)
		}
	}
}

var noTradeLabels = []struct {
	marker string
	label  string
}{
	{model.ExecutedNoSkip, "Signal SKIP"},
	{model.ExecutedNoFriday, "Friday (no trade)"},
	{model.ExecutedNoVIXGate, "VIX level gate"},
	{model.ExecutedNoDuplicate, "Duplicate suppression"},
}

func printNotTraded(w io.Writer, notTraded []journal.Entry) {
	if len(notTraded) == 0 {
		return
	}
	correct := 0
	for _, e := range notTraded {
		if isCorrect(e.Outcome.Verdict) {
			correct++
		}
	}
	fmt.Fprintf(w, "\n  NOT TRADED (%d days)\n", len(notTraded))
	fmt.Fprintf(w, "  Correct to stay out: %d/%d (%.1f%%)\n", correct, len(notTraded),
		float64(correct)/float64(len(notTraded))*100)

	for _, reason := range noTradeLabels {
		var n, ok, missed int
		var sum float64
		for _, e := range notTraded {
			if e.TradeExecuted != reason.marker {
				continue
			}
			n++
			sum += e.Outcome.MovePct
			if isCorrect(e.Outcome.Verdict) {
				ok++
			} else {
				missed++
			}
		}
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "    %s: %d/%d correct, avg move %.4f%%", reason.label, ok, n, sum/float64(n))
		if missed > 0 {
			fmt.Fprintf(w, ", missed opportunities: %d", missed)
		}
		fmt.Fprintln(w)
	}
}

func printDistribution(w io.Writer, resolved []journal.Entry) {
	fmt.Fprintln(w, "\n  SIGNAL DISTRIBUTION")
	for _, tier := range []model.Decision{model.TradeAggressive, model.TradeNormal, model.TradeConservative, model.Skip} {
		n := 0
		for _, e := range resolved {
			if e.Signal.Decision == tier {
				n++
			}
		}
		fmt.Fprintf(w, "    %s: %d (%.0f%%)\n", tier, n, float64(n)/float64(len(resolved))*100)
	}
}

// PrintStability writes the poke stability section.
func PrintStability(w io.Writer, st *Stability) {
	fmt.Fprintln(w, "\n  POKE STABILITY ANALYSIS")
	if st.TotalDates == 0 {
		fmt.Fprintln(w, "    No multi-evaluation dates with outcome data yet.")
		return
	}

	fmt.Fprintf(w, "    Signal stability: %d/%d nights all evaluations agree (%.0f%%)\n",
		st.AllAgree, st.TotalDates, float64(st.AllAgree)/float64(st.TotalDates)*100)

	disagreements := st.TotalDates - st.AllAgree
	if disagreements > 0 {
		fmt.Fprintf(w, "    Disagreements: %d nights\n", disagreements)
		fmt.Fprintf(w, "      First evaluation was better: %d\n", st.FirstBetter)
		fmt.Fprintf(w, "      Later evaluation was better: %d\n", st.LaterBetter)
		fmt.Fprintf(w, "      Same outcome either way:     %d\n", st.SameOutcome-st.AllAgree)
		if st.LaterBetter > st.FirstBetter {
			fmt.Fprintln(w, "    Later evaluations win more often; delaying the decision may help.")
		} else if st.FirstBetter > st.LaterBetter {
			fmt.Fprintln(w, "    The first evaluation holds up; later news rarely improves the call.")
		}
	}

	for _, c := range st.Changes {
		verdict := "same outcome"
		if c.FirstResult != c.LaterResult {
			if c.FirstResult == "CORRECT" {
				verdict = "first was right"
			} else {
				verdict = "later was right"
			}
		}
		articles := ""
		if c.ArticleDelta != 0 {
			articles = fmt.Sprintf(" (articles %+d)", c.ArticleDelta)
		}
		fmt.Fprintf(w, "      %s: %s -> %s (move=%.4f%%)%s [%s]\n",
			c.Date, c.First, c.Later, c.MovePct, articles, verdict)
	}
}

func isCorrect(verdict string) bool {
	return strings.HasPrefix(verdict, "CORRECT")
}
