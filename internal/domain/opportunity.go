package domain

import (
	"fmt"
	"time"
)

// Opportunity is a cross-source pair of opposing positions whose combined
// probability is strictly under 1.0, implying a risk-free profit when both
// legs are taken simultaneously. The full opportunity set is rebuilt on every
// detection pass; records are never patched incrementally.
type Opportunity struct {
	ID              string
	LegA            Position
	LegB            Position
	ProfitMarginPct float64
	RequiredCapital float64
	EstimatedProfit float64
	Confidence      float64 // in [0,1]
	DetectedAt      time.Time
}

// ProfitMarginPct returns the percentage margin for a combined probability.
// Only meaningful for total < 1; callers must check for an edge first.
func ProfitMarginPct(total float64) float64 {
	return (1 - total) / total * 100
}

// SplitStakes divides capital across the two legs so the payout is identical
// regardless of which side resolves true. It fails loudly when the combined
// probability leaves no edge, since calling it without one is a caller bug.
func SplitStakes(capital, probA, probB float64) (stakeA, stakeB float64, err error) {
	total := probA + probB
	if total <= 0 {
		return 0, 0, fmt.Errorf("domain: split stakes: non-positive combined probability %.6f", total)
	}
	if total >= 1 {
		return 0, 0, fmt.Errorf("domain: split stakes: combined probability %.6f: %w", total, ErrNoEdge)
	}
	stakeA = capital * probA / total
	stakeB = capital * probB / total
	return stakeA, stakeB, nil
}

// EstimatedProfit returns the guaranteed profit on the given capital for a
// combined probability with an edge. Like SplitStakes it rejects totals
// without one.
func EstimatedProfit(capital, total float64) (float64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("domain: estimated profit: non-positive combined probability %.6f", total)
	}
	if total >= 1 {
		return 0, fmt.Errorf("domain: estimated profit: combined probability %.6f: %w", total, ErrNoEdge)
	}
	return capital * (1 - total) / total, nil
}
