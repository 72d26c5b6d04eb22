package news

import (
	"regexp"
	"strings"

	"volsignal/pkg/model"
)

// Junk patterns: clickbait, opinion pieces and stale recaps. An article
// matching any of these is dropped before priority tagging.
var junkPatterns = compileAll([]string{
	`secret to`, `trick to`, `\d+ ways to`, `you won't believe`,
	`shocking`, `amazing`, `incredible`,
	`^why you should`, `^how to`, `^what you need to know about investing`,
	`last week.*recap`, `last month.*review`, `year in review`,
})

// High-priority patterns: explicit event language that moves an index
// overnight — earnings, guidance, large moves, megacap rating changes,
// M&A and regulatory actions.
var highPriorityPatterns = compileAll([]string{
	`(beats|misses|reports) earnings`,
	`earnings (beat|miss)`,
	`q[1-4] (earnings|results)`,
	`(raises|cuts|lowers|increases) (guidance|forecast|outlook)`,
	`stock (sinks|soars|jumps|plunges) \d+%`,
	`shares (fall|rise|jump) \d+%`,
	`(up|down) (1[0-9]|[2-9][0-9])%`,
	`(apple|microsoft|google|alphabet|amazon|nvidia|tesla|meta).*(upgrade|downgrade|price target)`,
	`announces (acquisition|merger|layoffs|ceo)`,
	`completes (acquisition|merger)`,
	`sec (approves|rejects|investigates)`,
	`fda (approves|rejects)`,
})

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// FilterStats counts what the keyword filter did.
type FilterStats struct {
	FilteredJunk int `json:"filtered_junk"`
	Kept         int `json:"kept"`
}

// IsJunk reports whether the article is obvious clickbait, opinion or a
// stale recap.
func IsJunk(title, description string) bool {
	content := strings.ToLower(title + " " + description)
	for _, p := range junkPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

// ClassifyPriority tags an article HIGH when it carries explicit event
// language, NORMAL otherwise.
func ClassifyPriority(title, description string) string {
	content := strings.ToLower(title + " " + description)
	for _, p := range highPriorityPatterns {
		if p.MatchString(content) {
			return model.PriorityHigh
		}
	}
	return model.PriorityNormal
}

// Filter drops junk articles and tags survivors by priority. Junk filtering
// happens first: a junk article never receives a priority tag. Stateless.
func Filter(articles []model.Article) ([]model.Article, FilterStats) {
	var stats FilterStats
	kept := make([]model.Article, 0, len(articles))

	for _, a := range articles {
		if IsJunk(a.Title, a.Description) {
			stats.FilteredJunk++
			continue
		}
		a.Priority = ClassifyPriority(a.Title, a.Description)
		stats.Kept++
		kept = append(kept, a)
	}
	return kept, stats
}
