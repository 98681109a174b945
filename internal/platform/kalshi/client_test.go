package kalshi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/arbscan/internal/cache"
	"github.com/oddslab/arbscan/internal/domain"
	"github.com/oddslab/arbscan/internal/gateway"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const marketsFixture = `{
	"markets": [
		{
			"ticker": "RAIN-26SEP01",
			"event_ticker": "RAIN",
			"title": "Will it rain on Sep 1?",
			"status": "active",
			"yes_ask": 42,
			"no_ask": 60,
			"volume": 9000,
			"volume_24h": 1200,
			"liquidity": 15000,
			"close_time": "2026-09-01T12:00:00Z"
		},
		{
			"ticker": "QUIET-26",
			"title": "Nobody trades this",
			"status": "active",
			"yes_ask": 50,
			"no_ask": 52,
			"volume_24h": 3
		},
		{
			"ticker": "DONE-25",
			"title": "Already settled",
			"status": "settled",
			"yes_ask": 99,
			"no_ask": 1,
			"result": "yes"
		}
	],
	"cursor": ""
}`

func newTestClient(t *testing.T, srv *httptest.Server, minVolume24h float64) *Client {
	t.Helper()
	gw := gateway.New(100, time.Minute, 0, testLogger())
	store := cache.NewMemory(0)
	cfg := Config{BaseURL: srv.URL, PageSize: 200, CacheTTL: time.Minute, MinVolume24h: minVolume24h}
	return NewClient(cfg, gw, store, testLogger())
}

func TestFetch_NormalizesCentsToProbabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "status=open")
		w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 500)
	markets, positions, err := client.Fetch(context.Background())
	require.NoError(t, err)

	// QUIET-26 drops on the volume floor, DONE-25 on status.
	require.Len(t, markets, 1)
	m := markets[0]
	assert.Equal(t, "RAIN-26SEP01", m.ID)
	assert.Equal(t, SourceID, m.SourceID)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), m.CloseTime)

	pair := positions["RAIN-26SEP01"]
	require.Len(t, pair, 2)
	assert.InDelta(t, 0.42, pair[0].Probability, 1e-9)
	assert.InDelta(t, 0.60, pair[1].Probability, 1e-9)
	assert.Equal(t, domain.SideYes, pair[0].Side)
	assert.Equal(t, domain.SideNo, pair[1].Side)
}

func TestTransform_PriceSumTolerance(t *testing.T) {
	m := APIMarket{Ticker: "T", Status: "open", YesAsk: 10, NoAsk: 10, Volume24H: 1000}
	_, _, err := transform(&m, 0, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside tolerance")
}

func TestTransform_MissingPrices(t *testing.T) {
	m := APIMarket{Ticker: "T", Status: "open", YesAsk: 0, NoAsk: 55}
	_, _, err := transform(&m, 0, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable prices")
}

func TestTransform_CloseTimeDefaultsFarFuture(t *testing.T) {
	m := APIMarket{Ticker: "T", Status: "open", YesAsk: 48, NoAsk: 54}
	market, _, err := transform(&m, 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.FarFutureCloseTime, market.CloseTime)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, domain.MarketStatusActive, mapStatus("open"))
	assert.Equal(t, domain.MarketStatusActive, mapStatus("Active"))
	assert.Equal(t, domain.MarketStatusClosed, mapStatus("closed"))
	assert.Equal(t, domain.MarketStatusResolved, mapStatus("settled"))
	assert.Equal(t, domain.MarketStatusSuspended, mapStatus("paused"))
	assert.Equal(t, domain.MarketStatusSuspended, mapStatus("something-new"))
}

func TestGetMarkets_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"internal"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0)
	_, err := client.GetMarkets(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "HTTP 500")
}
