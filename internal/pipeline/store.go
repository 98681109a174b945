package pipeline

import (
	"sort"
	"sync"

	"github.com/oddslab/arbscan/internal/domain"
)

// Store holds the latest scanned markets, positions, and the derived
// opportunity list. The orchestrator is the single writer; readers get the
// data under an RLock as copies, so a scan running concurrently with reads
// can never corrupt what a reader sees.
type Store struct {
	mu            sync.RWMutex
	markets       map[string]domain.Market     // keyed by Market.Key()
	positions     map[string][]domain.Position // keyed by Market.Key()
	opportunities []domain.Opportunity
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		markets:   make(map[string]domain.Market),
		positions: make(map[string][]domain.Position),
	}
}

// ApplyBatch merges one source's scan result: every market overwrites any
// prior market with the same key wholesale, and every position list replaces
// the prior list for that market. Markets absent from the batch are left
// untouched until a later scan of their source replaces them.
func (s *Store) ApplyBatch(markets []domain.Market, positions map[string][]domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range markets {
		s.markets[m.Key()] = m
		if pair, ok := positions[m.ID]; ok {
			s.positions[m.Key()] = pair
		}
	}
}

// Markets returns a copy of all known markets sorted by close time, then key
// for a stable order. CloseTime is always populated, so the sort never has to
// handle missing data.
func (s *Store) Markets() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CloseTime.Equal(out[j].CloseTime) {
			return out[i].CloseTime.Before(out[j].CloseTime)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// PositionsForMarket returns a copy of the position pair stored under the
// given market key, or nil when the market is unknown.
func (s *Store) PositionsForMarket(key string) []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.positions[key]
	if !ok {
		return nil
	}
	out := make([]domain.Position, len(pair))
	copy(out, pair)
	return out
}

// AllPositions flattens every stored position into one slice for detection.
func (s *Store) AllPositions() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Position
	for _, pair := range s.positions {
		out = append(out, pair...)
	}
	return out
}

// SetOpportunities replaces the opportunity list wholesale.
func (s *Store) SetOpportunities(opps []domain.Opportunity) {
	s.mu.Lock()
	s.opportunities = opps
	s.mu.Unlock()
}

// Opportunities returns a copy of the current opportunity list.
func (s *Store) Opportunities() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Opportunity, len(s.opportunities))
	copy(out, s.opportunities)
	return out
}
