package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/pkg/model"
)

func art(title, source string, publishedAt time.Time) model.Article {
	return model.Article{Title: title, Source: source, PublishedAt: publishedAt}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Fed Holds Rates Steady", "fed holds rates steady"},
		{"punctuation stripped", "S&P 500 falls 1.2% -- traders brace!", "sp 500 falls 12 traders brace"},
		{"whitespace collapsed", "  fed   holds\trates  ", "fed holds rates"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "fed holds rates", "fed holds rates", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "fed", "", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		a, b := "fed signals rate cut in september", "fed signals september rate cut"
		assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
	})
}

func TestTitlesSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			"same event different punctuation",
			"Fed Holds Rates Steady, Signals Cut Ahead",
			"Fed holds rates steady -- signals cut ahead",
			true,
		},
		{
			"minor wording change",
			"S&P 500 closes at record high on tech rally",
			"S&P 500 closes at record high on tech rally today",
			true,
		},
		{
			"different events",
			"Fed holds rates steady in June meeting",
			"Nvidia reports record quarterly earnings beat",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitlesSimilar(tt.a, tt.b))
		})
	}
}

func TestDeduplicate(t *testing.T) {
	base := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

	t.Run("near duplicates collapse to best source", func(t *testing.T) {
		in := []model.Article{
			art("Fed holds rates steady, signals cut ahead", "MarketWatch", base),
			art("Fed Holds Rates Steady, Signals Cut Ahead", "Reuters", base),
			art("Nvidia reports record quarterly earnings", "CNBC", base.Add(-time.Hour)),
		}
		out := Deduplicate(in)
		require.Len(t, out, 2)
		assert.Equal(t, "Reuters", out[0].Source)
		assert.Equal(t, "CNBC", out[1].Source)
	})

	t.Run("most recent report wins", func(t *testing.T) {
		in := []model.Article{
			art("Treasury yields spike after hot CPI print", "Reuters", base.Add(-2*time.Hour)),
			art("Treasury yields spike after hot CPI print!", "Bloomberg", base),
		}
		out := Deduplicate(in)
		require.Len(t, out, 1)
		assert.Equal(t, "Bloomberg", out[0].Source)
	})

	t.Run("distinct stories survive", func(t *testing.T) {
		in := []model.Article{
			art("Fed holds rates steady in June meeting", "Reuters", base),
			art("Oil prices surge on Middle East supply fears", "Bloomberg", base),
			art("Apple unveils new AI features at developer event", "CNBC", base),
		}
		assert.Len(t, Deduplicate(in), 3)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []model.Article{
			art("Fed holds rates steady, signals cut ahead", "MarketWatch", base),
			art("Fed Holds Rates Steady, Signals Cut Ahead", "Reuters", base),
			art("Oil prices surge on supply fears", "Bloomberg", base),
			art("Oil prices surge on supply fears today", "CNBC", base.Add(-time.Minute)),
		}
		once := Deduplicate(in)
		twice := Deduplicate(once)
		assert.Equal(t, once, twice)
	})

	t.Run("never increases count", func(t *testing.T) {
		in := []model.Article{
			art("headline one about markets", "Reuters", base),
			art("headline two about energy", "CNBC", base),
		}
		assert.LessOrEqual(t, len(Deduplicate(in)), len(in))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Deduplicate(nil))
	})
}

func TestPriorityOf(t *testing.T) {
	assert.Equal(t, 1, priorityOf("Reuters"))
	assert.Equal(t, 2, priorityOf("Bloomberg Markets"))
	assert.Equal(t, otherSourcePriority, priorityOf("Some Blog"))
}
