package service

import (
	"context"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/pkg/events"
	"github.com/gatewise/checkin/pkg/logger"
)

// DiscountEvaluator decides whether a freshly created visit is the guest's
// exact third lifetime visit and issues the one-time reward. Visit four and
// beyond never re-trigger, and an existing discount row blocks re-issue.
type DiscountEvaluator struct {
	visits    repository.VisitRepository
	discounts repository.DiscountRepository
	bus       events.Publisher
}

func NewDiscountEvaluator(visits repository.VisitRepository, discounts repository.DiscountRepository, bus events.Publisher) *DiscountEvaluator {
	return &DiscountEvaluator{visits: visits, discounts: discounts, bus: bus}
}

func (e *DiscountEvaluator) Evaluate(ctx context.Context, guestID, visitID int64) (bool, error) {
	lifetime, err := e.visits.CountLifetime(ctx, guestID)
	if err != nil {
		return false, err
	}
	if lifetime != domain.DiscountVisitNumber {
		return false, nil
	}

	exists, err := e.discounts.ExistsForGuest(ctx, guestID)
	if err != nil || exists {
		return false, err
	}

	d, err := e.discounts.Create(ctx, guestID, visitID)
	if err != nil {
		return false, err
	}
	if d == nil {
		// Lost a race with a concurrent insert; the reward already went out.
		return false, nil
	}

	if e.bus != nil {
		event := events.DiscountTriggeredEvent{
			GuestID:     guestID,
			VisitID:     visitID,
			VisitNumber: lifetime,
		}
		if err := e.bus.Publish(ctx, events.DiscountTriggered, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish discount triggered event", "error", err, "guest_id", guestID)
		}
	}

	return true, nil
}
