package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/arbscan/internal/domain"
)

func mkt(id, source string, closeTime time.Time) domain.Market {
	return domain.Market{ID: id, SourceID: source, CloseTime: closeTime, Status: domain.MarketStatusActive}
}

func pair(marketID, source string, yes, no float64) []domain.Position {
	return []domain.Position{
		domain.NewPosition(marketID, source, domain.SideYes, yes, 0, time.Now()),
		domain.NewPosition(marketID, source, domain.SideNo, no, 0, time.Now()),
	}
}

func TestApplyBatch_OverwritesWholesale(t *testing.T) {
	s := NewStore()
	closeA := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	first := mkt("m1", "polymarket", closeA)
	first.Volume = 100
	first.Liquidity = 5000
	s.ApplyBatch([]domain.Market{first}, map[string][]domain.Position{
		"m1": pair("m1", "polymarket", 0.5, 0.5),
	})

	// Re-fetch reports a new volume and omits liquidity; the replacement is
	// wholesale, not a field merge.
	second := mkt("m1", "polymarket", closeA)
	second.Volume = 200
	s.ApplyBatch([]domain.Market{second}, map[string][]domain.Position{
		"m1": pair("m1", "polymarket", 0.6, 0.4),
	})

	markets := s.Markets()
	require.Len(t, markets, 1)
	assert.Equal(t, 200.0, markets[0].Volume)
	assert.Equal(t, 0.0, markets[0].Liquidity)

	positions := s.PositionsForMarket("polymarket/m1")
	require.Len(t, positions, 2)
	assert.Equal(t, 0.6, positions[0].Probability)
}

func TestApplyBatch_AbsentMarketsPersist(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.ApplyBatch([]domain.Market{mkt("m1", "polymarket", now), mkt("m2", "polymarket", now)}, nil)
	// The next batch from the same source no longer lists m2.
	s.ApplyBatch([]domain.Market{mkt("m1", "polymarket", now)}, nil)

	assert.Len(t, s.Markets(), 2)
}

func TestStore_SameIDDifferentSourcesCoexist(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.ApplyBatch([]domain.Market{mkt("42", "polymarket", now)}, map[string][]domain.Position{
		"42": pair("42", "polymarket", 0.5, 0.5),
	})
	s.ApplyBatch([]domain.Market{mkt("42", "kalshi", now)}, map[string][]domain.Position{
		"42": pair("42", "kalshi", 0.3, 0.7),
	})

	assert.Len(t, s.Markets(), 2)
	assert.Equal(t, 0.5, s.PositionsForMarket("polymarket/42")[0].Probability)
	assert.Equal(t, 0.3, s.PositionsForMarket("kalshi/42")[0].Probability)
}

func TestMarkets_SortedByCloseTime(t *testing.T) {
	s := NewStore()

	late := mkt("late", "polymarket", domain.FarFutureCloseTime)
	early := mkt("early", "kalshi", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	mid := mkt("mid", "polymarket", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	s.ApplyBatch([]domain.Market{late, early, mid}, nil)

	markets := s.Markets()
	require.Len(t, markets, 3)
	assert.Equal(t, "early", markets[0].ID)
	assert.Equal(t, "mid", markets[1].ID)
	assert.Equal(t, "late", markets[2].ID)
}

func TestPositionsForMarket_UnknownKey(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.PositionsForMarket("polymarket/nope"))
}

func TestAllPositions_Flattens(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.ApplyBatch([]domain.Market{mkt("m1", "polymarket", now)}, map[string][]domain.Position{
		"m1": pair("m1", "polymarket", 0.5, 0.5),
	})
	s.ApplyBatch([]domain.Market{mkt("k1", "kalshi", now)}, map[string][]domain.Position{
		"k1": pair("k1", "kalshi", 0.4, 0.6),
	})

	assert.Len(t, s.AllPositions(), 4)
}

func TestOpportunities_ReplacedWholesale(t *testing.T) {
	s := NewStore()

	s.SetOpportunities([]domain.Opportunity{{ID: "a"}, {ID: "b"}})
	require.Len(t, s.Opportunities(), 2)

	s.SetOpportunities(nil)
	assert.Empty(t, s.Opportunities())
}
