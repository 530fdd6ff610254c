package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/pkg/events"
	"github.com/gatewise/checkin/pkg/logger"
)

// ErrConsentRenewal marks a renewal write failure. It is a system fault,
// not a "guest needs to accept terms" rejection, and surfaces as such.
var ErrConsentRenewal = errors.New("unable to process guest terms update")

type ConsentOutcome struct {
	State      domain.ConsentState
	Renewed    bool
	Acceptance *domain.Acceptance
}

// ConsentResolver decides a guest's standing against the visitor terms and
// silently renews expired consent for returning guests. First-time guests
// are never renewed; they are routed to the email-the-terms outcome.
type ConsentResolver struct {
	acceptances repository.AcceptanceRepository
	bus         events.Publisher
}

func NewConsentResolver(acceptances repository.AcceptanceRepository, bus events.Publisher) *ConsentResolver {
	return &ConsentResolver{acceptances: acceptances, bus: bus}
}

func (r *ConsentResolver) Resolve(ctx context.Context, guestID int64, now time.Time) (*ConsentOutcome, error) {
	latest, err := r.acceptances.LatestForGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	if latest != nil && latest.ValidAt(now) {
		return &ConsentOutcome{State: domain.ConsentValid, Acceptance: latest}, nil
	}

	if latest == nil {
		return &ConsentOutcome{State: domain.ConsentNeverAccepted}, nil
	}

	// Returning guest with stale consent: issue a fresh 24h acceptance.
	renewed, err := r.acceptances.CreateRenewal(ctx, guestID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsentRenewal, err)
	}
	// Re-run the validity check against the new row rather than assuming
	// the write produced what we expect.
	if !renewed.ValidAt(now) {
		return nil, ErrConsentRenewal
	}

	if r.bus != nil {
		event := events.ConsentRenewedEvent{
			GuestID:      guestID,
			AcceptanceID: renewed.ID,
		}
		if renewed.ExpiresAt != nil {
			event.ExpiresAt = *renewed.ExpiresAt
		}
		if err := r.bus.Publish(ctx, events.ConsentRenewed, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish consent renewed event", "error", err, "guest_id", guestID)
		}
	}

	return &ConsentOutcome{State: domain.ConsentExpired, Renewed: true, Acceptance: renewed}, nil
}
