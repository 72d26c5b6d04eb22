package backtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"volsignal/pkg/model"
)

var tierOrder = []model.Decision{
	model.TradeAggressive,
	model.TradeNormal,
	model.TradeConservative,
	model.Skip,
}

type tierStats struct {
	count   int
	correct int
	sumMove float64
	maxMove float64
}

// PrintReport writes the full accuracy report for one run.
func PrintReport(w io.Writer, res *Result) {
	if len(res.Records) == 0 {
		fmt.Fprintln(w, "No dates simulated.")
		printSkipped(w, res.Skipped)
		return
	}

	scored := withOutcome(res.Records)

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "  BACKTEST REPORT  |  news stub = %d\n", res.StubScore)
	fmt.Fprintf(w, "  Period: %s -> %s\n", res.Records[0].Date, res.Records[len(res.Records)-1].Date)
	fmt.Fprintf(w, "  Trading days: %d  |  Days with outcomes: %d\n", len(res.Records), len(scored))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	if len(scored) == 0 {
		fmt.Fprintln(w, "\nNo outcome data available (need next-day bars).")
		printSkipped(w, res.Skipped)
		return
	}

	correct := 0
	byTier := make(map[model.Decision]*tierStats)
	for _, r := range scored {
		st := byTier[r.Decision]
		if st == nil {
			st = &tierStats{}
			byTier[r.Decision] = st
		}
		st.count++
		st.sumMove += r.MovePct
		if r.MovePct > st.maxMove {
			st.maxMove = r.MovePct
		}
		if isCorrect(r.Outcome) {
			st.correct++
			correct++
		}
	}

	fmt.Fprintf(w, "\n  Overall accuracy: %d/%d (%.1f%%)\n\n", correct, len(scored),
		float64(correct)/float64(len(scored))*100)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Tier", "Correct", "Accuracy", "Threshold", "Avg Move", "Max Move", "Frequency"}),
	)
	for _, tier := range tierOrder {
		st := byTier[tier]
		if st == nil {
			table.Append([]string{string(tier), "-", "-", fmt.Sprintf("%.2f%%", model.MoveThresholds[tier]), "-", "-", "0%"})
			continue
		}
		table.Append([]string{
			string(tier),
			fmt.Sprintf("%d/%d", st.correct, st.count),
			fmt.Sprintf("%.1f%%", float64(st.correct)/float64(st.count)*100),
			fmt.Sprintf("%.2f%%", model.MoveThresholds[tier]),
			fmt.Sprintf("%.3f%%", st.sumMove/float64(st.count)),
			fmt.Sprintf("%.3f%%", st.maxMove),
			fmt.Sprintf("%.0f%%", float64(st.count)/float64(len(scored))*100),
		})
	}
	table.Render()

	printSurvival(w, scored)
	printHistogram(w, res.Records)
	printSkipped(w, res.Skipped)
}

// PrintSweep writes the comparison table across stub news-scores.
func PrintSweep(w io.Writer, results []*Result) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, "  NEWS SCORE SWEEP")
	fmt.Fprintln(w, strings.Repeat("=", 70))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"News", "Accuracy", "Trades", "Skips", "Trade Survival"}),
	)
	for _, res := range results {
		scored := withOutcome(res.Records)
		if len(scored) == 0 {
			continue
		}
		correct, trades, skips, survived := 0, 0, 0, 0
		for _, r := range scored {
			if isCorrect(r.Outcome) {
				correct++
			}
			if r.Decision == model.Skip {
				skips++
				continue
			}
			trades++
			if isCorrect(r.Outcome) {
				survived++
			}
		}
		survival := "-"
		if trades > 0 {
			survival = fmt.Sprintf("%.1f%%", float64(survived)/float64(trades)*100)
		}
		table.Append([]string{
			fmt.Sprintf("%d", res.StubScore),
			fmt.Sprintf("%.1f%%", float64(correct)/float64(len(scored))*100),
			fmt.Sprintf("%d", trades),
			fmt.Sprintf("%d", skips),
			survival,
		})
	}
	table.Render()
}

// PrintRecords writes the per-date detail lines.
func PrintRecords(w io.Writer, res *Result) {
	for _, r := range res.Records {
		flagStr := ""
		if len(r.Flags) > 0 {
			flagStr = " [" + strings.Join(r.Flags, ", ") + "]"
		}
		moveStr := ""
		if r.HasOutcome {
			moveStr = fmt.Sprintf(" -> move=%.3f%% %s", r.MovePct, r.Outcome)
		}
		fmt.Fprintf(w, "  %s | SPX=%.0f VIX1D=%.1f | ivrv=%d trend=%d news=%d | comp=%.1f -> %s%s%s\n",
			r.Date, r.SPXClose, r.VIX1D, r.IVRVScore, r.TrendScore, r.NewsScore,
			r.Composite, r.Decision, flagStr, moveStr)
	}
}

func printSurvival(w io.Writer, scored []DayRecord) {
	trades, survived := 0, 0
	var winComp, lossComp float64
	wins, losses := 0, 0
	for _, r := range scored {
		if r.Decision == model.Skip {
			continue
		}
		trades++
		if isCorrect(r.Outcome) {
			survived++
			winComp += r.Composite
			wins++
		} else {
			lossComp += r.Composite
			losses++
		}
	}
	if trades == 0 {
		return
	}
	fmt.Fprintf(w, "\n  Trade survival: %d/%d (%.1f%%), blown trades: %d\n",
		survived, trades, float64(survived)/float64(trades)*100, trades-survived)
	if wins > 0 {
		fmt.Fprintf(w, "  Avg composite (wins): %.1f\n", winComp/float64(wins))
	}
	if losses > 0 {
		fmt.Fprintf(w, "  Avg composite (losses): %.1f\n", lossComp/float64(losses))
	}
}

func printHistogram(w io.Writer, records []DayRecord) {
	labels := []string{"<3.0", "3.0-4.9", "5.0-6.4", "6.5-7.4", ">=7.5"}
	counts := make([]int, len(labels))
	for _, r := range records {
		switch {
		case r.Composite < 3.0:
			counts[0]++
		case r.Composite < 5.0:
			counts[1]++
		case r.Composite < 6.5:
			counts[2]++
		case r.Composite < 7.5:
			counts[3]++
		default:
			counts[4]++
		}
	}
	fmt.Fprintln(w, "\n  Composite score distribution:")
	for i, label := range labels {
		pct := float64(counts[i]) / float64(len(records)) * 100
		fmt.Fprintf(w, "    %8s: %3d (%4.1f%%) %s\n", label, counts[i], pct,
			strings.Repeat("#", int(pct/2)))
	}
}

func printSkipped(w io.Writer, skipped []SkippedDay) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  Skipped dates (%d):\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "    %s: %s\n", s.Date, s.Reason)
	}
}

func withOutcome(records []DayRecord) []DayRecord {
	out := make([]DayRecord, 0, len(records))
	for _, r := range records {
		if r.HasOutcome {
			out = append(out, r)
		}
	}
	return out
}

func isCorrect(outcome string) bool {
	return strings.HasPrefix(outcome, "CORRECT")
}
