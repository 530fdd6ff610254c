package domain

import "time"

type Guest struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Country         string     `json:"country,omitempty"`
	ContactMethod   string     `json:"contact_method,omitempty"`
	ContactValue    string     `json:"contact_value,omitempty"`
	BlacklistedAt   *time.Time `json:"blacklisted_at,omitempty"`
	ProfileComplete bool       `json:"profile_complete"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Blacklisted reports whether the guest has been blocked by an admin.
// A nil guest is a first-time scan and is never blacklisted.
func (g *Guest) Blacklisted() bool {
	return g != nil && g.BlacklistedAt != nil
}

type Host struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	LocationID *int64    `json:"location_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Active   bool   `json:"active"`
	// MaxDailyVisits caps admissions per calendar day; nil means the
	// default of DefaultDailyCapacity applies.
	MaxDailyVisits *int `json:"max_daily_visits,omitempty"`
	// CutoffHour is 0-24 in the location's timezone; 24 means no cutoff.
	CutoffHour int `json:"cutoff_hour"`
	// HostConcurrentLimit overrides the policy's per-host limit when set.
	HostConcurrentLimit *int      `json:"host_concurrent_limit,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
