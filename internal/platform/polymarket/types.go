package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether flags are sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string; Gamma sends
// volume and liquidity both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma API. Several facts
// arrive in alternative encodings: outcome prices either as a structured token
// list or as JSON-encoded string arrays that need a second parse pass.
type APIMarket struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Slug            string    `json:"slug"`
	Active          flexBool  `json:"active"` // bool or "true"/"false" string
	Closed          bool      `json:"closed"`
	Archived        flexBool  `json:"archived"`
	AcceptingOrders flexBool  `json:"acceptingOrders"`
	Outcomes        string    `json:"outcomes"`      // JSON-encoded: "[\"Yes\",\"No\"]"
	OutcomePrices   string    `json:"outcomePrices"` // JSON-encoded: "[\"0.55\",\"0.45\"]"
	ClobTokenIDs    string    `json:"clobTokenIds"`  // JSON-encoded: "[\"123\",\"456\"]"
	Tokens          []Token   `json:"tokens"`
	Volume          flexFloat `json:"volume"`
	Liquidity       flexFloat `json:"liquidity"`
	EndDateISO      string    `json:"endDateIso"`
	EndDate         string    `json:"endDate"`
}

// Token is a structured outcome entry inside the Gamma market response, the
// preferred price encoding when present.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}
