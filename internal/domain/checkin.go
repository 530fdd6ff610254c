package domain

import (
	"errors"
	"time"
)

var (
	ErrHostNotFound     = errors.New("host not found")
	ErrLocationNotFound = errors.New("location not found")
)

// GuestRef is the minimal guest identity carried in a scanned QR payload.
// The wire keys are single letters to keep QR codes small.
type GuestRef struct {
	Email string `json:"e"`
	Name  string `json:"n"`
}

type OverrideRequest struct {
	Reason   string `json:"reason"`
	Password string `json:"password"`
}

// CheckinRequest is the unified check-in body. Exactly one of Guest,
// Guests, or Token is expected; Token carries the raw scanned string.
type CheckinRequest struct {
	Guest      *GuestRef        `json:"guest,omitempty"`
	Guests     []GuestRef       `json:"guests,omitempty"`
	Token      string           `json:"token,omitempty"`
	HostID     int64            `json:"host_id"`
	LocationID int64            `json:"location_id"`
	Override   *OverrideRequest `json:"override,omitempty"`
}

type GuestResult struct {
	Success           bool       `json:"success"`
	GuestName         string     `json:"guest_name"`
	GuestEmail        string     `json:"guest_email"`
	Code              string     `json:"code,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	VisitID           int64      `json:"visit_id,omitempty"`
	AcceptanceRenewed bool       `json:"acceptance_renewed,omitempty"`
	DiscountSent      bool       `json:"discount_sent,omitempty"`
	ReEntry           bool       `json:"re_entry,omitempty"`
	ActiveElsewhere   bool       `json:"active_elsewhere,omitempty"`
	RequiresOverride  bool       `json:"requires_override,omitempty"`
	CurrentCount      int        `json:"current_count,omitempty"`
	MaxCount          int        `json:"max_count,omitempty"`
	NextEligibleAt    *time.Time `json:"next_eligible_at,omitempty"`
}

type CheckinSummary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type CheckinResponse struct {
	Success bool           `json:"success"`
	Results []GuestResult  `json:"results"`
	Summary CheckinSummary `json:"summary"`
}
