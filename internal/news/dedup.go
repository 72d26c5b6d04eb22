package news

import (
	"sort"
	"strings"
	"unicode"

	"volsignal/pkg/model"
)

// similarityThreshold: two normalized titles at or above this ratio are
// treated as reports of the same event.
const similarityThreshold = 0.85

// sourcePriority ranks feeds for tie-breaking between same-time duplicates.
// Lower is better; unknown sources go last.
var sourcePriority = map[string]int{
	"reuters":       1,
	"bloomberg":     2,
	"google news":   3,
	"yahoo finance": 4,
	"cnbc":          5,
	"marketwatch":   6,
}

const otherSourcePriority = 99

// NormalizeTitle lowercases, strips punctuation and collapses whitespace so
// cosmetic differences between feeds don't defeat the similarity check.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitlesSimilar reports whether two titles describe the same event.
func TitlesSimilar(a, b string) bool {
	return Similarity(NormalizeTitle(a), NormalizeTitle(b)) >= similarityThreshold
}

// Similarity returns the Ratcliff/Obershelp ratio of two strings in [0,1]:
// twice the number of matching characters over the total length.
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matches := matchingChars(a, b)
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

// matchingChars counts characters in common: the longest common substring,
// plus, recursively, the matches in the pieces to its left and right.
func matchingChars(a, b string) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestMatch(a, b string) (ai, bi, size int) {
	// j2len[j] = length of the match ending at a[i], b[j].
	j2len := make(map[int]int, len(b))
	for i := 0; i < len(a); i++ {
		next := make(map[int]int, len(b))
		for j := 0; j < len(b); j++ {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > size {
				ai, bi, size = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return ai, bi, size
}

func priorityOf(source string) int {
	s := strings.ToLower(source)
	for name, rank := range sourcePriority {
		if strings.Contains(s, name) {
			return rank
		}
	}
	return otherSourcePriority
}

// Deduplicate collapses near-duplicate headlines to one canonical article
// per event. Articles are ordered most-recent-first with source rank as
// tie-break, then accepted greedily: an article within the similarity
// threshold of any already-accepted title is discarded. Among duplicate
// reports of one event the most recent report from the best source wins.
// Idempotent: running it on its own output changes nothing.
func Deduplicate(articles []model.Article) []model.Article {
	if len(articles) == 0 {
		return nil
	}

	sorted := make([]model.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PublishedAt.Equal(sorted[j].PublishedAt) {
			return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
		}
		return priorityOf(sorted[i].Source) < priorityOf(sorted[j].Source)
	})

	unique := make([]model.Article, 0, len(sorted))
	seen := make([]string, 0, len(sorted))

	for _, a := range sorted {
		norm := NormalizeTitle(a.Title)
		dup := false
		for _, s := range seen {
			if Similarity(norm, s) >= similarityThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		unique = append(unique, a)
		seen = append(seen, norm)
	}
	return unique
}
