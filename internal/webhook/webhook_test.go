package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volsignal/internal/config"
	"volsignal/pkg/model"
)

func TestSendRoutesByTier(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(config.WebhookConfig{
		Aggressive:   srv.URL + "/aggr",
		Normal:       srv.URL + "/normal",
		Conservative: srv.URL + "/cons",
		NoTrade:      srv.URL + "/skip",
	})

	ok, err := d.Send(context.Background(),
		model.Signal{Decision: model.TradeNormal, ShouldTrade: true},
		model.CompositeScore{Score: 4.2})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/normal", gotPath)
	assert.Equal(t, "TRADE_NORMAL", gotPayload["signal"])
	assert.Equal(t, 4.2, gotPayload["composite"])

	ok, err = d.Send(context.Background(),
		model.Signal{Decision: model.Skip},
		model.CompositeScore{Score: 8.0})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/skip", gotPath)
}

func TestSendSkipWithoutURLSucceeds(t *testing.T) {
	d := NewDispatcher(config.WebhookConfig{})
	ok, err := d.Send(context.Background(), model.Signal{Decision: model.Skip}, model.CompositeScore{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSendTradeWithoutURLFails(t *testing.T) {
	d := NewDispatcher(config.WebhookConfig{})
	ok, err := d.Send(context.Background(), model.Signal{Decision: model.TradeNormal}, model.CompositeScore{})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSendNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(config.WebhookConfig{Normal: srv.URL})
	ok, err := d.Send(context.Background(), model.Signal{Decision: model.TradeNormal}, model.CompositeScore{})
	assert.Error(t, err)
	assert.False(t, ok)
}
