package news

import (
	"fmt"
	"sort"
	"strings"

	"volsignal/pkg/model"
)

// At most this many curated articles go into the assessor summary.
const maxSummaryArticles = 30

// PipelineStats tracks the article counts through both pipeline layers.
type PipelineStats struct {
	RawArticles       int `json:"raw_articles"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	UniqueArticles    int `json:"unique_articles"`
	JunkFiltered      int `json:"junk_filtered"`
	SentToAssessor    int `json:"sent_to_assessor"`
}

// Result is the curated output of the news pipeline: articles ready for
// risk assessment plus a formatted summary and per-layer stats.
type Result struct {
	Count    int             `json:"count"`
	Summary  string          `json:"summary"`
	Articles []model.Article `json:"articles"`
	Stats    PipelineStats   `json:"stats"`
}

// Process runs raw headlines through deduplication then keyword filtering
// and formats the survivors for the risk assessor, newest first.
func Process(raw []model.Article) Result {
	if len(raw) == 0 {
		return Result{Summary: "No news available."}
	}

	unique := Deduplicate(raw)
	filtered, fstats := Filter(unique)

	stats := PipelineStats{
		RawArticles:       len(raw),
		DuplicatesRemoved: len(raw) - len(unique),
		UniqueArticles:    len(unique),
		JunkFiltered:      fstats.FilteredJunk,
		SentToAssessor:    fstats.Kept,
	}

	if len(filtered) == 0 {
		return Result{Summary: "No actionable news after filtering.", Stats: stats}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PublishedAt.After(filtered[j].PublishedAt)
	})
	if len(filtered) > maxSummaryArticles {
		filtered = filtered[:maxSummaryArticles]
	}
	stats.SentToAssessor = len(filtered)

	return Result{
		Count:    len(filtered),
		Summary:  formatSummary(filtered),
		Articles: filtered,
		Stats:    stats,
	}
}

func formatSummary(articles []model.Article) string {
	var b strings.Builder
	for _, a := range articles {
		recency := recencyLabel(a.HoursAgo)
		marker := ""
		if a.Priority == model.PriorityHigh {
			marker = " [HIGH]"
		}
		fmt.Fprintf(&b, "[%s] %s%s (%s)\n", a.PublishedAt.Format("03:04 PM"), recency, marker, a.Source)
		fmt.Fprintf(&b, "   %s\n", a.Title)
		if a.Description != "" {
			desc := a.Description
			if len(desc) > 150 {
				desc = desc[:150] + "..."
			}
			fmt.Fprintf(&b, "   %s\n", desc)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func recencyLabel(hoursAgo float64) string {
	switch {
	case hoursAgo < 1:
		return "VERY RECENT"
	case hoursAgo < 3:
		return "RECENT"
	case hoursAgo < 6:
		return "Somewhat recent"
	default:
		return "Earlier today"
	}
}
