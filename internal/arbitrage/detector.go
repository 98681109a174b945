// Package arbitrage detects cross-platform pricing inefficiencies: pairs of
// opposing positions from different sources whose combined probability is
// strictly under 1.0.
package arbitrage

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oddslab/arbscan/internal/domain"
)

// defaultConfidence is a placeholder score attached to every opportunity.
// A real scoring model is pending product requirements.
const defaultConfidence = 0.5

// Detector runs the exhaustive pairwise scan over all known positions.
type Detector struct {
	stake  float64 // nominal capital per opportunity
	logger *slog.Logger
}

// New creates a Detector that sizes every opportunity against the given
// nominal stake.
func New(stake float64, logger *slog.Logger) *Detector {
	return &Detector{
		stake:  stake,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// Detect compares every unordered pair of positions from different sources on
// opposing sides and returns one Opportunity per profitable spread. The result
// list is rebuilt from scratch on every pass; nothing is deduplicated against
// a previous pass.
//
// This is an O(n^2) scan and the most computationally significant operation in
// the pipeline. That scaling is a deliberate design property: n is the number
// of tracked positions, expected to stay in the hundreds.
func (d *Detector) Detect(positions []domain.Position, now time.Time) []domain.Opportunity {
	var opps []domain.Opportunity

	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			p1, p2 := positions[i], positions[j]

			// Same-source pairs are definitionally not cross-platform
			// arbitrage; same-side pairs are not a hedge at all.
			if p1.SourceID == p2.SourceID || !p1.Side.Opposes(p2.Side) {
				continue
			}

			total := p1.Probability + p2.Probability
			if total >= 1.0 {
				continue
			}

			opp, err := d.build(p1, p2, total, now)
			if err != nil {
				// Unreachable given the total check above; fail loudly
				// rather than emit a silently zeroed record.
				d.logger.Error("opportunity math failed",
					slog.String("market_a", p1.MarketID),
					slog.String("market_b", p2.MarketID),
					slog.String("error", err.Error()),
				)
				continue
			}
			opps = append(opps, opp)
		}
	}

	d.logger.Info("detection pass complete",
		slog.Int("positions", len(positions)),
		slog.Int("opportunities", len(opps)),
	)
	return opps
}

func (d *Detector) build(p1, p2 domain.Position, total float64, now time.Time) (domain.Opportunity, error) {
	profit, err := domain.EstimatedProfit(d.stake, total)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if _, _, err := domain.SplitStakes(d.stake, p1.Probability, p2.Probability); err != nil {
		return domain.Opportunity{}, err
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		LegA:            p1,
		LegB:            p2,
		ProfitMarginPct: domain.ProfitMarginPct(total),
		RequiredCapital: d.stake,
		EstimatedProfit: profit,
		Confidence:      defaultConfidence,
		DetectedAt:      now,
	}, nil
}
