package newsfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/internal/config"
)

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Test Feed</title>
  <item>
    <title>Fed holds rates steady</title>
    <description>The central bank kept rates unchanged.</description>
    <pubDate>Mon, 15 Jun 2026 13:30:00 -0400</pubDate>
  </item>
  <item>
    <title>Old story about last quarter</title>
    <pubDate>Fri, 12 Jun 2026 09:00:00 -0400</pubDate>
  </item>
  <item>
    <title></title>
  </item>
</channel></rss>`

func fixedNow() time.Time {
	return time.Date(2026, 6, 15, 14, 0, 0, 0, time.FixedZone("EDT", -4*3600))
}

func newTestFetcher(feeds []config.FeedConfig) *Fetcher {
	f := NewFetcher(config.NewsConfig{Feeds: feeds, MaxAgeHours: 18})
	f.now = fixedNow
	return f
}

func TestParse(t *testing.T) {
	f := newTestFetcher(nil)
	articles, err := f.parse([]byte(sampleFeed), "Test Feed")
	require.NoError(t, err)

	// Stale story is outside the 18h window, empty title is dropped.
	require.Len(t, articles, 1)
	a := articles[0]
	assert.Equal(t, "Fed holds rates steady", a.Title)
	assert.Equal(t, "The central bank kept rates unchanged.", a.Description)
	assert.Equal(t, "Test Feed", a.Source)
	assert.InDelta(t, 0.5, a.HoursAgo, 0.01)
}

func TestParsePubDate(t *testing.T) {
	now := fixedNow()

	t.Run("rfc1123z", func(t *testing.T) {
		got := parsePubDate("Mon, 15 Jun 2026 13:30:00 -0400", now)
		assert.Equal(t, 13, got.Hour())
	})

	t.Run("unparseable falls back to now", func(t *testing.T) {
		assert.Equal(t, now, parsePubDate("yesterday-ish", now))
	})

	t.Run("empty falls back to now", func(t *testing.T) {
		assert.Equal(t, now, parsePubDate("", now))
	})
}

func TestFetchDegradesOnPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	f := newTestFetcher([]config.FeedConfig{
		{Name: "Good", URL: good.URL},
		{Name: "Bad", URL: bad.URL},
	})

	articles, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestFetchAllFeedsDown(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	f := newTestFetcher([]config.FeedConfig{{Name: "Bad", URL: bad.URL}})
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}
