package kalshi

// APIMarket represents a market as returned by the Kalshi REST API. Prices
// arrive in cents (1-99).
type APIMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Status       string  `json:"status"` // "active"/"open", "closed", "settled"
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	NoBid        float64 `json:"no_bid"`
	NoAsk        float64 `json:"no_ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	Volume24H    int64   `json:"volume_24h"`
	OpenInterest int64   `json:"open_interest"`
	Liquidity    float64 `json:"liquidity"`
	CloseTime    string  `json:"close_time"`
	Result       string  `json:"result"` // "yes", "no", "" while unsettled
}

// marketsResponse is the paginated envelope around market listings.
type marketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}
