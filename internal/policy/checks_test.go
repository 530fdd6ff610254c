package policy_test

import (
	"testing"
	"time"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/policy"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int          { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func activeLocation() *domain.Location {
	return &domain.Location{
		ID:         1,
		Name:       "HQ",
		Timezone:   "UTC",
		Active:     true,
		CutoffHour: domain.NoCutoff,
	}
}

func TestCheckBlacklist(t *testing.T) {
	blocked := testNow.Add(-time.Hour)

	tests := []struct {
		name  string
		guest *domain.Guest
		valid bool
	}{
		{"nil guest is new and allowed", nil, true},
		{"clean guest", &domain.Guest{ID: 1}, true},
		{"blacklisted guest", &domain.Guest{ID: 1, BlacklistedAt: &blocked}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := policy.CheckBlacklist(tt.guest)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, r.Valid)
			}
			if !tt.valid && r.Code != policy.CodeBlacklisted {
				t.Fatalf("Expected code %s, got %s", policy.CodeBlacklisted, r.Code)
			}
		})
	}
}

func TestCheckCutoffHour(t *testing.T) {
	loc := activeLocation()

	tests := []struct {
		name   string
		cutoff int
		hour   int
		valid  bool
	}{
		{"well before cutoff", 18, 10, true},
		{"one hour before cutoff", 18, 17, true},
		{"exactly at cutoff is closed", 18, 18, false},
		{"after cutoff", 18, 20, false},
		{"cutoff 24 means always open", 24, 23, true},
		{"midnight with cutoff 1", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc.CutoffHour = tt.cutoff
			now := time.Date(2025, 6, 15, tt.hour, 30, 0, 0, time.UTC)
			r := policy.CheckCutoffHour(loc, domain.NoCutoff, now)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v at hour %d cutoff %d, got %v", tt.valid, tt.hour, tt.cutoff, r.Valid)
			}
		})
	}
}

func TestCheckCutoffHour_GlobalFallback(t *testing.T) {
	now := time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC)

	if r := policy.CheckCutoffHour(nil, 18, now); r.Valid {
		t.Fatal("Expected global cutoff to apply with no location")
	}
	if r := policy.CheckCutoffHour(nil, domain.NoCutoff, now); !r.Valid {
		t.Fatal("Expected global cutoff 24 to keep doors open")
	}
}

func TestCheckCutoffHour_LocationTimezone(t *testing.T) {
	loc := activeLocation()
	loc.Timezone = "America/New_York"
	loc.CutoffHour = 18

	// 21:00 UTC is 17:00 in New York during DST: still open.
	now := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	if r := policy.CheckCutoffHour(loc, domain.NoCutoff, now); !r.Valid {
		t.Fatal("Expected check-in open at 17:00 local time")
	}

	// 22:00 UTC is 18:00 local: closed.
	now = time.Date(2025, 6, 15, 22, 0, 0, 0, time.UTC)
	if r := policy.CheckCutoffHour(loc, domain.NoCutoff, now); r.Valid {
		t.Fatal("Expected check-in closed at 18:00 local time")
	}
}

func TestCheckLocationCapacity(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		max    *int
		todays int
		valid  bool
		code   string
	}{
		{"inactive fails regardless of capacity", false, intPtr(100), 0, false, policy.CodeLocationInactive},
		{"under configured capacity", true, intPtr(100), 99, true, ""},
		{"at configured capacity", true, intPtr(100), 100, false, policy.CodeLocationFull},
		{"default capacity applies when unset", true, nil, 999, true, ""},
		{"default capacity boundary", true, nil, 1000, false, policy.CodeLocationFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := activeLocation()
			loc.Active = tt.active
			loc.MaxDailyVisits = tt.max
			r := policy.CheckLocationCapacity(loc, tt.todays)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, r.Valid)
			}
			if !tt.valid && r.Code != tt.code {
				t.Fatalf("Expected code %s, got %s", tt.code, r.Code)
			}
		})
	}
}

func TestCheckMonthlyLimit_WindowBoundary(t *testing.T) {
	cfg := domain.PolicyConfig{GuestMonthlyLimit: 1, HostConcurrentLimit: 3}
	boundary := testNow.Add(-domain.MonthlyWindow)

	tests := []struct {
		name        string
		checkedInAt time.Time
		valid       bool
	}{
		{"exactly 30 days old is excluded", boundary, true},
		{"a millisecond older is excluded", boundary.Add(-time.Millisecond), true},
		{"a millisecond younger is counted", boundary.Add(time.Millisecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visits := []domain.Visit{{ID: 1, CheckedInAt: tt.checkedInAt}}
			r := policy.CheckMonthlyLimit(visits, cfg, testNow)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, r.Valid)
			}
		})
	}
}

func TestCheckMonthlyLimit_NextEligibleDate(t *testing.T) {
	cfg := domain.PolicyConfig{GuestMonthlyLimit: 2, HostConcurrentLimit: 3}
	oldest := testNow.Add(-20 * 24 * time.Hour)
	visits := []domain.Visit{
		{ID: 1, CheckedInAt: testNow.Add(-2 * 24 * time.Hour)},
		{ID: 2, CheckedInAt: oldest},
	}

	r := policy.CheckMonthlyLimit(visits, cfg, testNow)
	if r.Valid {
		t.Fatal("Expected monthly limit failure")
	}
	if r.Code != policy.CodeMonthlyLimit {
		t.Fatalf("Expected code %s, got %s", policy.CodeMonthlyLimit, r.Code)
	}
	if r.CurrentCount != 2 || r.MaxCount != 2 {
		t.Fatalf("Expected counts 2/2, got %d/%d", r.CurrentCount, r.MaxCount)
	}
	want := oldest.Add(domain.MonthlyWindow)
	if r.NextEligibleAt == nil || !r.NextEligibleAt.Equal(want) {
		t.Fatalf("Expected next eligible %v, got %v", want, r.NextEligibleAt)
	}
}

func TestCheckHostConcurrent_CapacityEquality(t *testing.T) {
	for limit := 1; limit <= 5; limit++ {
		cfg := domain.PolicyConfig{GuestMonthlyLimit: 3, HostConcurrentLimit: limit}

		if r := policy.CheckHostConcurrent(limit-1, cfg); !r.Valid {
			t.Fatalf("count=limit-1 must be valid for limit %d", limit)
		}
		if r := policy.CheckHostConcurrent(limit, cfg); r.Valid {
			t.Fatalf("count=limit must be invalid for limit %d", limit)
		}
	}
}

func TestCheckConsent_Regimes(t *testing.T) {
	visitID := int64(42)

	tests := []struct {
		name       string
		acceptance *domain.Acceptance
		valid      bool
	}{
		{"no acceptance", nil, false},
		{
			"visit-scoped within 24h",
			&domain.Acceptance{AcceptedAt: testNow.Add(-23 * time.Hour), VisitID: &visitID},
			true,
		},
		{
			"visit-scoped exactly at 24h is expired",
			&domain.Acceptance{AcceptedAt: testNow.Add(-domain.VisitScopedConsentTTL), VisitID: &visitID},
			false,
		},
		{
			"legacy within 365 days",
			&domain.Acceptance{AcceptedAt: testNow.Add(-364 * 24 * time.Hour)},
			true,
		},
		{
			"legacy exactly at 365 days is expired",
			&domain.Acceptance{AcceptedAt: testNow.Add(-domain.LegacyConsentTTL)},
			false,
		},
		{
			"legacy age but visit-scoped regime",
			&domain.Acceptance{AcceptedAt: testNow.Add(-48 * time.Hour), VisitID: &visitID},
			false,
		},
		{
			"explicit expiry wins",
			&domain.Acceptance{AcceptedAt: testNow.Add(-time.Hour), ExpiresAt: timePtr(testNow.Add(-time.Minute))},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := policy.CheckConsent(tt.acceptance, testNow)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, r.Valid)
			}
		})
	}
}

func TestCheckTokenExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt *time.Time
		valid     bool
	}{
		{"nil expiry is valid forever", nil, true},
		{"future expiry", timePtr(testNow.Add(time.Minute)), true},
		{"exactly now is expired", timePtr(testNow), false},
		{"past expiry", timePtr(testNow.Add(-time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := policy.CheckTokenExpiry(tt.expiresAt, testNow)
			if r.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, r.Valid)
			}
		})
	}
}
