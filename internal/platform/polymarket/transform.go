package polymarket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oddslab/arbscan/internal/domain"
)

// Tolerance band for the Yes+No probability sum. Wide enough that rounding on
// good feeds passes, tight enough to reject stale or malformed ones.
const (
	priceSumMin = 0.8
	priceSumMax = 1.2
)

// Drop reasons surfaced by Transform. Per-record, never fatal: the batch
// counts them and moves on.
var (
	errNotTradable = errors.New("market not tradable")
	errNoPrices    = errors.New("no usable price encoding")
	errPriceSum    = errors.New("yes/no price sum outside tolerance")
	errIlliquid    = errors.New("liquidity below floor")
)

// priceQuote is the successful outcome of price extraction. Extraction
// returns (priceQuote, true) or (zero, false); callers must handle the
// not-found branch explicitly.
type priceQuote struct {
	Yes float64
	No  float64
}

func (q priceQuote) total() float64 { return q.Yes + q.No }

// Transformer converts raw Gamma market records into the canonical model.
type Transformer struct {
	minLiquidity float64
	logger       *slog.Logger
}

// NewTransformer creates a Transformer that drops markets whose reported
// liquidity is below minLiquidity. A floor of zero disables the check.
func NewTransformer(minLiquidity float64, logger *slog.Logger) *Transformer {
	return &Transformer{
		minLiquidity: minLiquidity,
		logger:       logger.With(slog.String("component", "polymarket_transform")),
	}
}

// Transform converts one raw record into a Market and its Yes/No position
// pair, or returns the reason the record was dropped. The two positions are
// produced together or not at all.
func (t *Transformer) Transform(m *APIMarket, observedAt time.Time) (domain.Market, [2]domain.Position, error) {
	var none [2]domain.Position

	if !tradable(m) {
		return domain.Market{}, none, errNotTradable
	}

	quote, ok := extractPrices(m)
	if !ok {
		return domain.Market{}, none, errNoPrices
	}
	if sum := quote.total(); sum < priceSumMin || sum > priceSumMax {
		return domain.Market{}, none, fmt.Errorf("%w: %.4f", errPriceSum, sum)
	}

	liquidity := float64(m.Liquidity)
	if t.minLiquidity > 0 && liquidity > 0 && liquidity < t.minLiquidity {
		return domain.Market{}, none, fmt.Errorf("%w: %.2f", errIlliquid, liquidity)
	}

	market := domain.Market{
		ID:        m.ID,
		Title:     m.Question,
		SourceID:  SourceID,
		CloseTime: closeTime(m),
		Status:    mapStatus(m.Closed, bool(m.Archived), bool(m.Active), bool(m.AcceptingOrders)),
		Volume:    float64(m.Volume),
		Liquidity: liquidity,
		URL:       marketURL(m.Slug),
	}

	positions := [2]domain.Position{
		domain.NewPosition(m.ID, SourceID, domain.SideYes, quote.Yes, liquidity, observedAt),
		domain.NewPosition(m.ID, SourceID, domain.SideNo, quote.No, liquidity, observedAt),
	}
	return market, positions, nil
}

// TransformBatch maps raw records to Markets and a marketID -> position-pair
// map, counting dropped records as a data-quality metric rather than an error.
func (t *Transformer) TransformBatch(records []APIMarket, observedAt time.Time) ([]domain.Market, map[string][]domain.Position) {
	markets := make([]domain.Market, 0, len(records))
	positions := make(map[string][]domain.Position, len(records))

	dropped := 0
	for i := range records {
		market, pair, err := t.Transform(&records[i], observedAt)
		if err != nil {
			dropped++
			t.logger.Debug("dropped market record",
				slog.String("market_id", records[i].ID),
				slog.String("reason", err.Error()),
			)
			continue
		}
		markets = append(markets, market)
		positions[market.ID] = pair[:]
	}

	t.logger.Info("transformed market batch",
		slog.Int("input", len(records)),
		slog.Int("kept", len(markets)),
		slog.Int("dropped", dropped),
	)
	return markets, positions
}

// tradable collapses the source-specific flags into a single check: flagged
// active, not closed, not archived, and accepting new orders.
func tradable(m *APIMarket) bool {
	return bool(m.Active) && !m.Closed && !bool(m.Archived) && bool(m.AcceptingOrders)
}

// mapStatus maps the Gamma boolean flags to the canonical status. Pure
// function over the flag truth table.
func mapStatus(closed, archived, active, acceptingOrders bool) domain.MarketStatus {
	switch {
	case closed || archived:
		return domain.MarketStatusClosed
	case active && acceptingOrders:
		return domain.MarketStatusActive
	case active:
		return domain.MarketStatusSuspended
	default:
		return domain.MarketStatusActive
	}
}

// extractPrices runs the ordered fallback chain over the alternative price
// encodings. First success wins.
func extractPrices(m *APIMarket) (priceQuote, bool) {
	if quote, ok := pricesFromTokens(m.Tokens); ok {
		return quote, true
	}
	return pricesFromStringArrays(m.OutcomePrices, m.Outcomes)
}

// pricesFromTokens prefers the structured token list: entries whose outcome
// name equals "yes"/"no" case-insensitively carry the prices directly.
func pricesFromTokens(tokens []Token) (priceQuote, bool) {
	var quote priceQuote
	var haveYes, haveNo bool
	for _, tok := range tokens {
		switch {
		case strings.EqualFold(tok.Outcome, "yes"):
			quote.Yes = tok.Price
			haveYes = true
		case strings.EqualFold(tok.Outcome, "no"):
			quote.No = tok.Price
			haveNo = true
		}
	}
	return quote, haveYes && haveNo
}

// pricesFromStringArrays parses the stringified JSON price array (a string
// that itself contains JSON). The first element is the Yes price and the
// second the No price, unless a parallel outcome-name array pairs them
// positionally in a different order.
func pricesFromStringArrays(outcomePrices, outcomes string) (priceQuote, bool) {
	prices, ok := parseNumberArray(outcomePrices)
	if !ok || len(prices) < 2 {
		return priceQuote{}, false
	}

	yesIdx, noIdx := 0, 1
	if names, ok := parseStringArray(outcomes); ok && len(names) >= 2 {
		for i, name := range names {
			if i >= len(prices) {
				break
			}
			switch {
			case strings.EqualFold(name, "yes"):
				yesIdx = i
			case strings.EqualFold(name, "no"):
				noIdx = i
			}
		}
	}
	return priceQuote{Yes: prices[yesIdx], No: prices[noIdx]}, true
}

// parseNumberArray decodes a JSON-encoded array of numbers that may arrive as
// numbers or numeric strings.
func parseNumberArray(s string) ([]float64, bool) {
	if s == "" {
		return nil, false
	}
	var raw []json.Number
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		// Gamma usually quotes the elements: ["0.55","0.45"].
		var strs []string
		if err := json.Unmarshal([]byte(s), &strs); err != nil {
			return nil, false
		}
		out := make([]float64, 0, len(strs))
		for _, v := range strs {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		n, err := v.Float64()
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func parseStringArray(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

// closeTime parses the record's end date, defaulting to the far future when
// the source omits it so downstream sorting never fails.
func closeTime(m *APIMarket) time.Time {
	for _, raw := range []string{m.EndDateISO, m.EndDate} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return domain.FarFutureCloseTime
}

func marketURL(slug string) string {
	if slug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + slug
}
