package domain

import "time"

// Side is the outcome a position is staked on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposes reports whether the two sides are opposite outcomes.
func (s Side) Opposes(other Side) bool {
	return s != other
}

// Position is one side of a binary market with its implied probability.
// Positions are created in Yes/No pairs during transformation; a market that
// cannot produce both sides produces neither.
type Position struct {
	MarketID           string
	SourceID           string
	Side               Side
	Probability        float64 // in [0,1]
	DisplayProbability float64 // in [0,100], denormalized for presentation
	AvailableLiquidity float64 // 0 when the source reports none
	ObservedAt         time.Time
}

// NewPosition builds a Position with the display probability derived from the
// raw probability.
func NewPosition(marketID, sourceID string, side Side, probability, liquidity float64, observedAt time.Time) Position {
	return Position{
		MarketID:           marketID,
		SourceID:           sourceID,
		Side:               side,
		Probability:        probability,
		DisplayProbability: probability * 100,
		AvailableLiquidity: liquidity,
		ObservedAt:         observedAt,
	}
}
