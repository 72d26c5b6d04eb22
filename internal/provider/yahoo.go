package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"volsignal/internal/ratelimit"
	"volsignal/pkg/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider is the keyless fallback against the unofficial Yahoo
// Finance chart API.
type YahooProvider struct {
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		baseURL: yahooBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: ratelimit.NewLimiter("yahoo", 30),
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// yahooResponse is the chart API response
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []float64 `json:"open"`
					High  []float64 `json:"high"`
					Low   []float64 `json:"low"`
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) get(ctx context.Context, url string) (*yahooResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	var data yahooResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if data.Chart.Error != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}
	if len(data.Chart.Result) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("empty chart result"), Retryable: false}
	}
	return &data, nil
}

// Snapshot fetches the current session for one index ticker
func (p *YahooProvider) Snapshot(ctx context.Context, ticker string) (model.IndexSnapshot, error) {
	url := fmt.Sprintf("%s/%s?range=1d&interval=5m&includePrePost=false", p.baseURL, ticker)

	data, err := p.get(ctx, url)
	if err != nil {
		return model.IndexSnapshot{}, err
	}

	result := data.Chart.Result[0]
	snap := model.IndexSnapshot{
		Ticker:        ticker,
		Value:         result.Meta.RegularMarketPrice,
		PreviousClose: result.Meta.PreviousClose,
		AsOf:          time.Now(),
	}

	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		for i := range q.Close {
			if q.Open[i] == 0 && q.Close[i] == 0 {
				continue
			}
			if snap.OpenToday == 0 {
				snap.OpenToday = q.Open[i]
			}
			if q.High[i] > snap.HighToday {
				snap.HighToday = q.High[i]
			}
			if snap.LowToday == 0 || (q.Low[i] > 0 && q.Low[i] < snap.LowToday) {
				snap.LowToday = q.Low[i]
			}
		}
	}

	if snap.Value == 0 {
		return model.IndexSnapshot{}, &Error{Provider: p.Name(), Err: fmt.Errorf("no price for %s", ticker), Retryable: false}
	}
	return snap, nil
}

// DailyCloses fetches up to limit trailing daily closes, most recent first
func (p *YahooProvider) DailyCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	url := fmt.Sprintf("%s/%s?range=3mo&interval=1d&includePrePost=false", p.baseURL, ticker)

	data, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no quotes for %s", ticker), Retryable: false}
	}

	raw := result.Indicators.Quote[0].Close
	closes := make([]float64, 0, limit)
	for i := len(raw) - 1; i >= 0 && len(closes) < limit; i-- {
		if raw[i] > 0 {
			closes = append(closes, raw[i])
		}
	}
	if len(closes) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no closes for %s", ticker), Retryable: false}
	}
	return closes, nil
}

// DailyBars fetches daily bars over [from, to], ascending by date
func (p *YahooProvider) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false",
		p.baseURL, ticker, from.Unix(), to.Add(24*time.Hour).Unix())

	data, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no quotes for %s", ticker), Retryable: false}
	}
	q := result.Indicators.Quote[0]

	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == 0 {
			continue
		}
		bars = append(bars, model.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  q.Open[i],
			High:  q.High[i],
			Low:   q.Low[i],
			Close: q.Close[i],
		})
	}
	return bars, nil
}

// DayBar fetches the bar for a single date; model.ErrNoData when the
// market was closed
func (p *YahooProvider) DayBar(ctx context.Context, ticker string, date time.Time) (model.Bar, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	bars, err := p.DailyBars(ctx, ticker, day, day)
	if err != nil {
		return model.Bar{}, err
	}
	if len(bars) == 0 {
		return model.Bar{}, fmt.Errorf("%s on %s: %w", ticker, day.Format("2006-01-02"), model.ErrNoData)
	}
	return bars[0], nil
}

// MinutePrice fetches the price at the given instant from minute bars,
// accepting a bar within two minutes of the target
func (p *YahooProvider) MinutePrice(ctx context.Context, ticker string, at time.Time) (float64, error) {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1m&includePrePost=false",
		p.baseURL, ticker, day.Unix(), day.Add(24*time.Hour).Unix())

	data, err := p.get(ctx, url)
	if err != nil {
		return 0, err
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return 0, fmt.Errorf("%s minutes on %s: %w", ticker, day.Format("2006-01-02"), model.ErrNoData)
	}
	q := result.Indicators.Quote[0]

	target := at.Unix()
	bestIdx := -1
	var bestDiff int64
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == 0 {
			continue
		}
		d := ts - target
		if d < 0 {
			d = -d
		}
		if bestIdx == -1 || d < bestDiff {
			bestIdx, bestDiff = i, d
		}
	}
	if bestIdx == -1 || bestDiff > 2*60 {
		return 0, fmt.Errorf("%s: no minute bar within 2m of %s: %w", ticker, at.Format("15:04"), model.ErrNoData)
	}
	return q.Close[bestIdx], nil
}
