package ports

import (
	"context"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Notifier surfaces opportunities and trade outcomes to the operator.
// Delivery is fire-and-forget: a notifier failure must never affect
// detection or execution.
type Notifier interface {
	// NotifyOpportunities receives the opportunities of one scan cycle that
	// cleared the alert threshold, best first. The slice may be empty on a
	// cycle with nothing to report; the implementation chooses whether an
	// empty cycle is announced at all.
	NotifyOpportunities(ctx context.Context, opps []domain.Opportunity) error

	// NotifyTrade receives each terminal trade record.
	NotifyTrade(ctx context.Context, rec domain.TradeRecord) error
}
