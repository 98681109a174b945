// Package notify is the hand-off point between the scan pipeline and the
// operator: freshly detected opportunities are formatted and dispatched to
// all registered senders (Telegram, Discord, the process log).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oddslab/arbscan/internal/domain"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches opportunity alerts to one or more Senders. Opportunities
// below the margin threshold are dropped so operators only hear about spreads
// worth acting on.
type Notifier struct {
	senders      []Sender
	minMarginPct float64
	logger       *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// opportunities with at least minMarginPct profit margin are forwarded; a
// threshold of zero forwards everything.
func NewNotifier(senders []Sender, minMarginPct float64, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders:      senders,
		minMarginPct: minMarginPct,
		logger:       logger.With(slog.String("component", "notifier")),
	}
}

// OpportunitiesDetected filters and dispatches one alert summarizing the
// given detection pass. Sender failures are logged per sender; one failing
// channel never blocks delivery to the rest.
func (n *Notifier) OpportunitiesDetected(ctx context.Context, opps []domain.Opportunity) {
	if len(n.senders) == 0 {
		return
	}

	var notable []domain.Opportunity
	for _, opp := range opps {
		if opp.ProfitMarginPct >= n.minMarginPct {
			notable = append(notable, opp)
		}
	}
	if len(notable) == 0 {
		return
	}

	title := fmt.Sprintf("%d arbitrage opportunity(ies) detected", len(notable))
	message := formatOpportunities(notable)

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.Debug("notification sent", slog.String("sender", s.Name()))
	}
}

// formatOpportunities renders one line per opportunity, best margin first in
// the order the detector produced them.
func formatOpportunities(opps []domain.Opportunity) string {
	var b strings.Builder
	for i, opp := range opps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s/%s %s @ %.3f + %s/%s %s @ %.3f -> margin %.2f%%, est. profit %.2f on %.0f",
			opp.LegA.SourceID, opp.LegA.MarketID, opp.LegA.Side, opp.LegA.Probability,
			opp.LegB.SourceID, opp.LegB.MarketID, opp.LegB.Side, opp.LegB.Probability,
			opp.ProfitMarginPct, opp.EstimatedProfit, opp.RequiredCapital,
		)
	}
	return b.String()
}
