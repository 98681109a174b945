package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitMarginPct_Scenario(t *testing.T) {
	// A-No=0.45 paired with B-Yes=0.40 -> total 0.85.
	margin := ProfitMarginPct(0.85)
	assert.InDelta(t, 17.647, margin, 0.001)
}

func TestProfitMarginPct_NearOne(t *testing.T) {
	margin := ProfitMarginPct(0.999999)
	assert.InDelta(t, 0.0001, margin, 0.00001)
}

func TestSplitStakes_EqualPayout(t *testing.T) {
	stakeA, stakeB, err := SplitStakes(1000, 0.45, 0.40)
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, stakeA+stakeB, 1e-9)

	// Payout if A resolves true must equal payout if B resolves true.
	payoutA := stakeA / 0.45
	payoutB := stakeB / 0.40
	assert.InDelta(t, payoutA, payoutB, 1e-9)
}

func TestSplitStakes_NoEdgeFailsLoudly(t *testing.T) {
	_, _, err := SplitStakes(1000, 0.55, 0.60)
	require.ErrorIs(t, err, ErrNoEdge)

	// Exactly 1.0 is not an edge either.
	_, _, err = SplitStakes(1000, 0.50, 0.50)
	require.ErrorIs(t, err, ErrNoEdge)
}

func TestSplitStakes_NonPositiveTotal(t *testing.T) {
	_, _, err := SplitStakes(1000, 0, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoEdge)
}

func TestEstimatedProfit(t *testing.T) {
	profit, err := EstimatedProfit(1000, 0.85)
	require.NoError(t, err)
	assert.InDelta(t, 176.47, profit, 0.01)

	_, err = EstimatedProfit(1000, 1.0)
	require.ErrorIs(t, err, ErrNoEdge)
}

func TestSideOpposes(t *testing.T) {
	assert.True(t, SideYes.Opposes(SideNo))
	assert.False(t, SideYes.Opposes(SideYes))
}

func TestNewPosition_DerivesDisplayProbability(t *testing.T) {
	p := NewPosition("m1", "polymarket", SideYes, 0.55, 2500, FarFutureCloseTime)
	assert.Equal(t, 55.0, p.DisplayProbability)
	assert.Equal(t, "polymarket", p.SourceID)
}

func TestMarketKey(t *testing.T) {
	m := Market{ID: "123", SourceID: "kalshi"}
	assert.Equal(t, "kalshi/123", m.Key())
}
