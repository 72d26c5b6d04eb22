package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"volsignal/internal/ratelimit"
	"volsignal/pkg/model"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonProvider fetches index data from the Polygon REST API.
type PolygonProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewPolygonProvider creates a new Polygon provider
func NewPolygonProvider(apiKey string, rateLimitPerMin int) *PolygonProvider {
	return &PolygonProvider{
		apiKey:  apiKey,
		baseURL: polygonBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: ratelimit.NewLimiter("polygon", rateLimitPerMin),
	}
}

// Name returns the provider name
func (p *PolygonProvider) Name() string {
	return "polygon"
}

// IsAvailable checks if the provider has an API key
func (p *PolygonProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// polygonSnapshot is the v3 index snapshot response
type polygonSnapshot struct {
	Results []struct {
		Ticker  string  `json:"ticker"`
		Value   float64 `json:"value"`
		Error   string  `json:"error"`
		Session struct {
			Open          float64 `json:"open"`
			High          float64 `json:"high"`
			Low           float64 `json:"low"`
			PreviousClose float64 `json:"previous_close"`
		} `json:"session"`
	} `json:"results"`
}

// polygonAggs is the v2 aggregates response
type polygonAggs struct {
	Results []struct {
		T int64   `json:"t"` // epoch millis
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
	} `json:"results"`
}

// get performs one API call with rate limiting and 429 backoff.
func (p *PolygonProvider) get(ctx context.Context, url string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &Error{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return &Error{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Snapshot fetches the current session for one index ticker
func (p *PolygonProvider) Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error) {
	url := fmt.Sprintf("%s/v3/snapshot/indices?ticker.any_of=%s&apiKey=%s", p.baseURL, ticker, p.apiKey)

	var data polygonSnapshot
	if err := p.get(ctx, url, &data); err != nil {
		return model.IndexSnapshot{}, err
	}

	if len(data.Results) == 0 {
		return model.IndexSnapshot{}, &Error{Provider: p.Name(), Err: fmt.Errorf("no snapshot for %s", ticker), Retryable: false}
	}
	r := data.Results[0]
	if r.Error != "" {
		return model.IndexSnapshot{}, &Error{Provider: p.Name(), Err: fmt.Errorf("snapshot %s: %s", ticker, r.Error), Retryable: false}
	}
	if r.Ticker != ticker {
		return model.IndexSnapshot{}, &Error{Provider: p.Name(), Err: fmt.Errorf("unexpected ticker %s", r.Ticker), Retryable: false}
	}

	return model.IndexSnapshot{
		Ticker:        r.Ticker,
		Value:         r.Value,
		OpenToday:     r.Session.Open,
		HighToday:     r.Session.High,
		LowToday:      r.Session.Low,
		PreviousClose: r.Session.PreviousClose,
		AsOf:          time.Now(),
	}, nil
}

// DailyCloses fetches up to limit trailing daily closes, most recent first
func (p *PolygonProvider) DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	// Calendar window wide enough to cover the requested trading days.
	to := time.Now()
	from := to.AddDate(0, 0, -limit*2-10)

	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=desc&limit=%d&apiKey=%s",
		p.baseURL, ticker, from.Format("2006-01-02"), to.Format("2006-01-02"), limit, p.apiKey)

	var data polygonAggs
	if err := p.get(ctx, url, &data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no daily data for %s", ticker), Retryable: false}
	}

	closes := make([]float64, 0, limit)
	for _, bar := range data.Results {
		closes = append(closes, bar.C)
		if len(closes) == limit {
			break
		}
	}
	return closes, nil
}

// DailyBars fetches daily bars over [from, to], ascending by date
func (p *PolygonProvider) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=5000&apiKey=%s",
		p.baseURL, ticker, from.Format("2006-01-02"), to.Format("2006-01-02"), p.apiKey)

	var data polygonAggs
	if err := p.get(ctx, url, &data); err != nil {
		return nil, err
	}

	bars := make([]model.Bar, len(data.Results))
	for i, r := range data.Results {
		bars[i] = model.Bar{
			Date:  time.UnixMilli(r.T).UTC(),
			Open:  r.O,
			High:  r.H,
			Low:   r.L,
			Close: r.C,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// DayBar fetches the bar for a single date; model.ErrNoData when the
// market was closed
func (p *PolygonProvider) DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error) {
	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&limit=1&apiKey=%s",
		p.baseURL, ticker, day, day, p.apiKey)

	var data polygonAggs
	if err := p.get(ctx, url, &data); err != nil {
		return model.Bar{}, err
	}
	if len(data.Results) == 0 {
		return model.Bar{}, fmt.Errorf("%s on %s: %w", ticker, day, model.ErrNoData)
	}

	r := data.Results[0]
	return model.Bar{
		Date:  time.UnixMilli(r.T).UTC(),
		Open:  r.O,
		High:  r.H,
		Low:   r.L,
		Close: r.C,
	}, nil
}

// MinutePrice fetches the price at the given instant from minute bars,
// accepting a bar within two minutes of the target
func (p *PolygonProvider) MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error) {
	day := at.Format("2006-01-02")
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		p.baseURL, ticker, day, day, p.apiKey)

	var data polygonAggs
	if err := p.get(ctx, url, &data); err != nil {
		return 0, err
	}
	if len(data.Results) == 0 {
		return 0, fmt.Errorf("%s minutes on %s: %w", ticker, day, model.ErrNoData)
	}

	target := at.UnixMilli()
	best := data.Results[0]
	bestDiff := absInt64(best.T - target)
	for _, r := range data.Results[1:] {
		if d := absInt64(r.T - target); d < bestDiff {
			best, bestDiff = r, d
		}
	}

	if bestDiff > 2*60*1000 {
		return 0, fmt.Errorf("%s: no minute bar within 2m of %s: %w", ticker, at.Format("15:04"), model.ErrNoData)
	}
	return best.C, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
