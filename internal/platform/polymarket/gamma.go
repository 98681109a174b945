// Package polymarket fetches markets from the Polymarket Gamma API and
// normalizes them into the canonical model. The Gamma API is publicly
// readable; no credentials are needed.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oddslab/arbscan/internal/cache"
	"github.com/oddslab/arbscan/internal/domain"
	"github.com/oddslab/arbscan/internal/gateway"
)

// SourceID identifies this platform in the canonical model.
const SourceID = "polymarket"

// Client is the REST client for the Gamma API. Every request is admitted
// through the rate-limited gateway and the response cache, in that order:
// a cache hit never consumes gateway quota.
type Client struct {
	baseURL    string
	pageSize   int
	cacheTTL   time.Duration
	gw         *gateway.Gateway
	cache      cache.Store
	transform  *Transformer
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds the client construction parameters.
type Config struct {
	// BaseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
	BaseURL  string
	PageSize int
	CacheTTL time.Duration
}

// NewClient creates a Gamma client that routes through gw and store.
func NewClient(cfg Config, gw *gateway.Gateway, store cache.Store, transform *Transformer, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		pageSize:  pageSize,
		cacheTTL:  cfg.CacheTTL,
		gw:        gw,
		cache:     store,
		transform: transform,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "polymarket")),
	}
}

// Name implements pipeline.Source.
func (c *Client) Name() string { return SourceID }

// Fetch implements pipeline.Source. It pulls one page of active markets ordered
// by volume and transforms them into the canonical model.
func (c *Client) Fetch(ctx context.Context) ([]domain.Market, map[string][]domain.Position, error) {
	records, err := c.GetMarkets(ctx, c.pageSize, 0)
	if err != nil {
		return nil, nil, err
	}
	markets, positions := c.transform.TransformBatch(records, time.Now().UTC())
	return markets, positions, nil
}

// GetMarkets returns one page of raw active-market records.
func (c *Client) GetMarkets(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume")
	params.Set("ascending", "false")

	path := "/markets?" + params.Encode()

	body, err := c.cache.GetOrFetch(ctx, SourceID+":"+path, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.gw.Do(ctx, func(ctx context.Context) ([]byte, error) {
			return c.doGet(ctx, path)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket: get markets: %w", err)
	}

	var records []APIMarket
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket: decode markets: %w", err)
	}
	return records, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
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

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus converts non-2xx upstream responses into errors. Error
// responses are treated like transport failures: the source scan fails for
// this cycle only and nothing is retried within the cycle.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, body)
	}
}
