package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"volsignal/internal/config"
	"volsignal/pkg/model"
)

// Dispatcher posts trade signals to the per-tier execution webhooks.
type Dispatcher struct {
	urls   map[model.Decision]string
	client *http.Client
}

// NewDispatcher builds a dispatcher from the configured URLs. SKIP maps
// to the no-trade URL.
func NewDispatcher(cfg config.WebhookConfig) *Dispatcher {
	return &Dispatcher{
		urls: map[model.Decision]string{
			model.TradeAggressive:   cfg.Aggressive,
			model.TradeNormal:       cfg.Normal,
			model.TradeConservative: cfg.Conservative,
			model.Skip:              cfg.NoTrade,
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	Signal    string  `json:"signal"`
	Composite float64 `json:"composite"`
	Timestamp string  `json:"timestamp"`
}

// Send posts the signal to its tier's webhook. Success is any 2xx
// response. A SKIP with no no-trade URL configured is a silent success;
// a trade tier with no URL is an error.
func (d *Dispatcher) Send(ctx context.Context, sig model.Signal, composite model.CompositeScore) (bool, error) {
	url := d.urls[sig.Decision]
	if url == "" {
		if sig.Decision == model.Skip {
			return true, nil
		}
		return false, fmt.Errorf("no webhook URL for %s", sig.Decision)
	}

	body, err := json.Marshal(payload{
		Signal:    string(sig.Decision),
		Composite: composite.Score,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		return false, fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	log.Info().Str("signal", string(sig.Decision)).Msg("webhook dispatched")
	return true, nil
}
