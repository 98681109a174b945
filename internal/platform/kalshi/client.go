// Package kalshi fetches markets from the public Kalshi REST API and
// normalizes them into the canonical model. Only read-only market listing
// endpoints are used, so the client carries no credentials.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oddslab/arbscan/internal/cache"
	"github.com/oddslab/arbscan/internal/domain"
	"github.com/oddslab/arbscan/internal/gateway"
)

// SourceID identifies this platform in the canonical model.
const SourceID = "kalshi"

// Tolerance band for the Yes+No probability sum, matching the Polymarket
// transformer so a stale book is rejected the same way on both sources.
const (
	priceSumMin = 0.8
	priceSumMax = 1.2
)

// Client is the REST client for the Kalshi markets API, admitted through the
// rate-limited gateway and response cache like every upstream call.
type Client struct {
	baseURL      string
	pageSize     int
	cacheTTL     time.Duration
	minVolume24h float64
	gw           *gateway.Gateway
	cache        cache.Store
	httpClient   *http.Client
	logger       *slog.Logger
}

// Config holds the client construction parameters.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
	BaseURL      string
	PageSize     int
	CacheTTL     time.Duration
	MinVolume24h float64
}

// NewClient creates a Kalshi client that routes through gw and store.
func NewClient(cfg Config, gw *gateway.Gateway, store cache.Store, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		pageSize:     pageSize,
		cacheTTL:     cfg.CacheTTL,
		minVolume24h: cfg.MinVolume24h,
		gw:           gw,
		cache:        store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "kalshi")),
	}
}

// Name implements pipeline.Source.
func (c *Client) Name() string { return SourceID }

// Fetch implements pipeline.Source. It pulls one page of open markets and
// transforms them into the canonical model, counting dropped records.
func (c *Client) Fetch(ctx context.Context) ([]domain.Market, map[string][]domain.Position, error) {
	records, err := c.GetMarkets(ctx)
	if err != nil {
		return nil, nil, err
	}

	observedAt := time.Now().UTC()
	markets := make([]domain.Market, 0, len(records))
	positions := make(map[string][]domain.Position, len(records))

	dropped := 0
	for i := range records {
		market, pair, err := transform(&records[i], c.minVolume24h, observedAt)
		if err != nil {
			dropped++
			c.logger.Debug("dropped market record",
				slog.String("ticker", records[i].Ticker),
				slog.String("reason", err.Error()),
			)
			continue
		}
		markets = append(markets, market)
		positions[market.ID] = pair[:]
	}

	c.logger.Info("transformed market batch",
		slog.Int("input", len(records)),
		slog.Int("kept", len(markets)),
		slog.Int("dropped", dropped),
	)
	return markets, positions, nil
}

// GetMarkets returns one page of raw open-market records.
func (c *Client) GetMarkets(ctx context.Context) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("status", "open")

	path := "/markets?" + params.Encode()

	body, err := c.cache.GetOrFetch(ctx, SourceID+":"+path, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.gw.Do(ctx, func(ctx context.Context) ([]byte, error) {
			return c.doGet(ctx, path)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("kalshi: get markets: %w", err)
	}

	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kalshi: decode markets: %w", err)
	}
	return resp.Markets, nil
}

// transform converts one raw record into a Market and its Yes/No position
// pair, or returns the reason the record was dropped. Buying either side
// costs the ask, so the ask prices are the implied probabilities.
func transform(m *APIMarket, minVolume24h float64, observedAt time.Time) (domain.Market, [2]domain.Position, error) {
	var none [2]domain.Position

	status := mapStatus(m.Status)
	if status != domain.MarketStatusActive {
		return domain.Market{}, none, fmt.Errorf("market not tradable: status %q", m.Status)
	}
	if m.YesAsk <= 0 || m.NoAsk <= 0 {
		return domain.Market{}, none, fmt.Errorf("no usable prices: yes_ask=%.0f no_ask=%.0f", m.YesAsk, m.NoAsk)
	}

	yes := m.YesAsk / 100
	no := m.NoAsk / 100
	if sum := yes + no; sum < priceSumMin || sum > priceSumMax {
		return domain.Market{}, none, fmt.Errorf("yes/no price sum outside tolerance: %.4f", sum)
	}

	if minVolume24h > 0 && float64(m.Volume24H) < minVolume24h {
		return domain.Market{}, none, fmt.Errorf("24h volume below floor: %d", m.Volume24H)
	}

	market := domain.Market{
		ID:        m.Ticker,
		Title:     m.Title,
		SourceID:  SourceID,
		CloseTime: closeTime(m.CloseTime),
		Status:    status,
		Volume:    float64(m.Volume),
		Liquidity: m.Liquidity,
		URL:       marketURL(m.EventTicker, m.Ticker),
	}

	positions := [2]domain.Position{
		domain.NewPosition(m.Ticker, SourceID, domain.SideYes, yes, m.Liquidity, observedAt),
		domain.NewPosition(m.Ticker, SourceID, domain.SideNo, no, m.Liquidity, observedAt),
	}
	return market, positions, nil
}

// mapStatus maps the Kalshi status string to the canonical status.
func mapStatus(status string) domain.MarketStatus {
	switch strings.ToLower(status) {
	case "active", "open":
		return domain.MarketStatusActive
	case "closed":
		return domain.MarketStatusClosed
	case "settled", "finalized":
		return domain.MarketStatusResolved
	case "paused":
		return domain.MarketStatusSuspended
	default:
		return domain.MarketStatusSuspended
	}
}

func closeTime(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return domain.FarFutureCloseTime
}

func marketURL(eventTicker, ticker string) string {
	if eventTicker == "" {
		return "https://kalshi.com/markets/" + ticker
	}
	return "https://kalshi.com/markets/" + eventTicker
}

// doGet sends an unauthenticated GET request to the Kalshi API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
