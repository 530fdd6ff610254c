// Package policy holds the independent check-in business rules. Each check
// is a pure function over read-only snapshots; the orchestrator fetches the
// data and runs the checks in a fixed order. All boundary comparisons are
// boundary-exclusive: at the cutoff hour is closed, at the limit is full,
// exactly 30 days old is outside the window, exactly at expiry is expired.
package policy

import (
	"fmt"
	"time"

	"github.com/gatewise/checkin/internal/domain"
)

// Error codes surfaced alongside kiosk-facing messages.
const (
	CodeBlacklisted      = "GUEST_BLACKLISTED"
	CodeAfterCutoff      = "AFTER_CUTOFF"
	CodeLocationInactive = "LOCATION_INACTIVE"
	CodeLocationFull     = "LOCATION_FULL"
	CodeMonthlyLimit     = "MONTHLY_LIMIT_REACHED"
	CodeHostAtCapacity   = "HOST_AT_CAPACITY"
	CodeConsentRequired  = "CONSENT_REQUIRED"
	CodeTokenExpired     = "TOKEN_EXPIRED"
)

type Result struct {
	Valid          bool
	Code           string
	Message        string
	CurrentCount   int
	MaxCount       int
	NextEligibleAt *time.Time
}

func ok() Result {
	return Result{Valid: true}
}

func fail(code, message string) Result {
	return Result{Code: code, Message: message}
}

// CheckBlacklist passes for unknown guests: a guest with no record yet has
// never been blocked.
func CheckBlacklist(guest *domain.Guest) Result {
	if guest.Blacklisted() {
		return fail(CodeBlacklisted, "Guest is not authorized to check in")
	}
	return ok()
}

// CheckCutoffHour closes the door from the cutoff hour onward, evaluated in
// the location's timezone. A cutoff of 24 means open around the clock. With
// no location, globalCutoff applies against server time.
func CheckCutoffHour(loc *domain.Location, globalCutoff int, now time.Time) Result {
	cutoff := globalCutoff
	if loc != nil {
		cutoff = loc.CutoffHour
		if tz, err := time.LoadLocation(loc.Timezone); err == nil {
			now = now.In(tz)
		}
	}
	if cutoff >= domain.NoCutoff {
		return ok()
	}
	if now.Hour() >= cutoff {
		return fail(CodeAfterCutoff, fmt.Sprintf("Check-ins are closed after %d:00 at this location", cutoff))
	}
	return ok()
}

// CheckLocationCapacity rejects inactive locations unconditionally, before
// any capacity math.
func CheckLocationCapacity(loc *domain.Location, todaysVisits int) Result {
	if !loc.Active {
		return fail(CodeLocationInactive, "This location is not accepting visitors")
	}
	capacity := domain.DefaultDailyCapacity
	if loc.MaxDailyVisits != nil {
		capacity = *loc.MaxDailyVisits
	}
	if todaysVisits >= capacity {
		r := fail(CodeLocationFull, "This location has reached its daily visitor capacity")
		r.CurrentCount = todaysVisits
		r.MaxCount = capacity
		return r
	}
	return ok()
}

// CheckMonthlyLimit counts the guest's visits inside a rolling 30-day
// window. A visit checked in exactly 30x24h ago (or earlier) is excluded.
// On failure NextEligibleAt is the oldest counted visit's time plus 30 days.
func CheckMonthlyLimit(visits []domain.Visit, cfg domain.PolicyConfig, now time.Time) Result {
	windowStart := now.Add(-domain.MonthlyWindow)

	var counted int
	var oldest *time.Time
	for i := range visits {
		t := visits[i].CheckedInAt
		if !t.After(windowStart) {
			continue
		}
		counted++
		if oldest == nil || t.Before(*oldest) {
			oldest = &t
		}
	}

	if counted >= cfg.GuestMonthlyLimit {
		r := fail(CodeMonthlyLimit, fmt.Sprintf("Guest has reached the limit of %d visits in 30 days", cfg.GuestMonthlyLimit))
		r.CurrentCount = counted
		r.MaxCount = cfg.GuestMonthlyLimit
		if oldest != nil {
			next := oldest.Add(domain.MonthlyWindow)
			r.NextEligibleAt = &next
		}
		return r
	}
	return ok()
}

// CheckHostConcurrent fails when the host's active visit count has reached
// the limit; equal to the limit is full, not a warning.
func CheckHostConcurrent(activeVisits int, cfg domain.PolicyConfig) Result {
	if activeVisits >= cfg.HostConcurrentLimit {
		r := fail(CodeHostAtCapacity, fmt.Sprintf("Host already has %d active visitors (limit %d)", activeVisits, cfg.HostConcurrentLimit))
		r.CurrentCount = activeVisits
		r.MaxCount = cfg.HostConcurrentLimit
		return r
	}
	return ok()
}

// CheckConsent evaluates the guest's most recent acceptance against now.
// The 24h visit-scoped and 365-day legacy regimes are told apart by whether
// the row references a visit.
func CheckConsent(latest *domain.Acceptance, now time.Time) Result {
	if latest == nil || !latest.ValidAt(now) {
		return fail(CodeConsentRequired, "Guest needs to accept the visitor terms")
	}
	return ok()
}

// CheckTokenExpiry treats a nil expiry as valid forever; exactly at the
// expiry instant is expired.
func CheckTokenExpiry(expiresAt *time.Time, now time.Time) Result {
	if expiresAt == nil {
		return ok()
	}
	if !expiresAt.After(now) {
		return fail(CodeTokenExpired, "This QR code has expired, please request a new one")
	}
	return ok()
}
