package notify

import (
	"context"
	"errors"

	"github.com/areebasiddiqi/triarb/internal/domain"
	"github.com/areebasiddiqi/triarb/internal/ports"
)

// Multi fans notifications out to several sinks. Every sink gets every
// notification; errors are joined so one slow webhook never hides a
// console write.
type Multi struct {
	sinks []ports.Notifier
}

// NewMulti bundles notifiers into one. With a single sink it is returned
// directly.
func NewMulti(sinks ...ports.Notifier) ports.Notifier {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &Multi{sinks: sinks}
}

func (m *Multi) NotifyOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.NotifyOpportunities(ctx, opps); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyTrade(ctx context.Context, rec domain.TradeRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.NotifyTrade(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
