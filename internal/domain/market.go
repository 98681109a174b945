// Package domain defines the canonical market, position, and opportunity
// model shared by every pipeline component, together with the pure arbitrage
// math applied to it.
package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "active"
	MarketStatusClosed    MarketStatus = "closed"
	MarketStatusSuspended MarketStatus = "suspended"
	MarketStatusResolved  MarketStatus = "resolved"
)

// FarFutureCloseTime is substituted when an upstream record carries no close
// time, so downstream sorting never has to handle a zero timestamp.
var FarFutureCloseTime = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC)

// Market is one tradable binary question on a single upstream platform.
// Markets are replaced wholesale on every re-fetch; there is no partial
// field merge and no explicit deletion.
type Market struct {
	ID        string // unique within its source
	Title     string
	SourceID  string
	CloseTime time.Time // always populated, see FarFutureCloseTime
	Status    MarketStatus
	Volume    float64 // 0 when the source reports none
	Liquidity float64 // 0 when the source reports none
	URL       string
}

// Key returns the cross-source map key for the market. Market IDs are only
// unique within one platform, so the key is prefixed with the source.
func (m Market) Key() string {
	return m.SourceID + "/" + m.ID
}
