package domain

import "time"

// Business rules
const (
	VisitDuration         = 12 * time.Hour
	VisitScopedConsentTTL = 24 * time.Hour
	LegacyConsentTTL      = 365 * 24 * time.Hour
	DiscountVisitNumber   = 3
)

type Visit struct {
	ID             int64      `json:"id"`
	GuestID        int64      `json:"guest_id"`
	HostID         int64      `json:"host_id"`
	LocationID     int64      `json:"location_id"`
	BadgeToken     string     `json:"badge_token"`
	CheckedInAt    time.Time  `json:"checked_in_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	OverrideReason *string    `json:"override_reason,omitempty"`
	OverrideUserID *int64     `json:"override_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ActiveAt reports whether the visit still counts against capacity.
func (v *Visit) ActiveAt(now time.Time) bool {
	return !v.ExpiresAt.Before(now)
}

// Acceptance records a guest's agreement to the visitor terms. Rows with a
// VisitID are visit-scoped (24h validity); rows without one are
// legacy/invitation-scoped (365 days).
type Acceptance struct {
	ID           int64      `json:"id"`
	GuestID      int64      `json:"guest_id"`
	AcceptedAt   time.Time  `json:"accepted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	VisitID      *int64     `json:"visit_id,omitempty"`
	InvitationID *int64     `json:"invitation_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ValidAt evaluates the acceptance against now. Expiry is boundary
// exclusive: exactly at the threshold is expired.
func (a *Acceptance) ValidAt(now time.Time) bool {
	if a.ExpiresAt != nil {
		return now.Before(*a.ExpiresAt)
	}
	ttl := LegacyConsentTTL
	if a.VisitID != nil {
		ttl = VisitScopedConsentTTL
	}
	return now.Before(a.AcceptedAt.Add(ttl))
}

// ConsentState classifies a guest's standing against the visitor terms.
type ConsentState string

const (
	ConsentNeverAccepted ConsentState = "never_accepted"
	ConsentValid         ConsentState = "valid"
	ConsentExpired       ConsentState = "expired"
)

type Discount struct {
	ID       int64     `json:"id"`
	GuestID  int64     `json:"guest_id"`
	VisitID  int64     `json:"visit_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// OverrideAudit is the append-only record of a capacity bypass.
type OverrideAudit struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"user_id"`
	TargetGuestID    int64     `json:"target_guest_id"`
	Reason           string    `json:"reason"`
	PasswordVerified bool      `json:"password_verified"`
	CreatedAt        time.Time `json:"created_at"`
}
