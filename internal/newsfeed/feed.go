package newsfeed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volsignal/internal/config"
	"volsignal/internal/metrics"
	"volsignal/pkg/model"
)

// Fetcher pulls raw headlines from a set of RSS feeds. One failed feed
// degrades to the remaining ones; only a total failure is an error.
type Fetcher struct {
	feeds  []config.FeedConfig
	maxAge time.Duration
	client *http.Client
	now    func() time.Time
}

// NewFetcher creates a fetcher over the configured feeds.
func NewFetcher(cfg config.NewsConfig) *Fetcher {
	return &Fetcher{
		feeds:  cfg.Feeds,
		maxAge: time.Duration(cfg.MaxAgeHours * float64(time.Hour)),
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Fetch pulls all feeds and returns raw articles no older than the
// freshness window, tagged with their source.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	failed := 0

	for _, feed := range f.feeds {
		items, err := f.fetchOne(ctx, feed)
		if err != nil {
			log.Warn().Err(err).Str("feed", feed.Name).Msg("news feed failed")
			metrics.FeedFailures.WithLabelValues(feed.Name).Inc()
			failed++
			continue
		}
		articles = append(articles, items...)
	}

	if failed == len(f.feeds) {
		return nil, fmt.Errorf("all %d news feeds failed", len(f.feeds))
	}
	return articles, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, feed config.FeedConfig) ([]model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", feed.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", feed.Name, err)
	}

	return f.parse(body, feed.Name)
}

func (f *Fetcher) parse(body []byte, source string) ([]model.Article, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}

	now := f.now()
	articles := make([]model.Article, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		published := parsePubDate(item.PubDate, now)
		age := now.Sub(published)
		if f.maxAge > 0 && age > f.maxAge {
			continue
		}

		articles = append(articles, model.Article{
			Title:       title,
			Description: strings.TrimSpace(item.Description),
			Source:      source,
			PublishedAt: published,
			HoursAgo:    age.Hours(),
		})
	}
	return articles, nil
}

// pubDateFormats covers the date layouts seen across the configured
// feeds.
var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// parsePubDate falls back to now for a missing or unparseable date, so
// an undated article counts as fresh rather than being dropped.
func parsePubDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range pubDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}
