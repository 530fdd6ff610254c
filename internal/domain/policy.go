package domain

import "time"

// Policy defaults applied when no row is configured.
const (
	DefaultGuestMonthlyLimit   = 3
	DefaultHostConcurrentLimit = 3
	DefaultDailyCapacity       = 1000
	NoCutoff                   = 24

	MonthlyWindow = 30 * 24 * time.Hour
)

// Policy is the stored configuration row, optionally location-scoped.
type Policy struct {
	ID                  int64     `json:"id"`
	LocationID          *int64    `json:"location_id,omitempty"`
	GuestMonthlyLimit   int       `json:"guest_monthly_limit"`
	HostConcurrentLimit int       `json:"host_concurrent_limit"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PolicyConfig is the resolved configuration handed to validators, with
// defaults and per-location overrides already applied.
type PolicyConfig struct {
	GuestMonthlyLimit   int
	HostConcurrentLimit int
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		GuestMonthlyLimit:   DefaultGuestMonthlyLimit,
		HostConcurrentLimit: DefaultHostConcurrentLimit,
	}
}

// ResolvePolicyConfig folds the stored policy (may be nil) and the
// location's per-host override (may be nil) into an effective config.
func ResolvePolicyConfig(p *Policy, loc *Location) PolicyConfig {
	cfg := DefaultPolicyConfig()
	if p != nil {
		if p.GuestMonthlyLimit > 0 {
			cfg.GuestMonthlyLimit = p.GuestMonthlyLimit
		}
		if p.HostConcurrentLimit > 0 {
			cfg.HostConcurrentLimit = p.HostConcurrentLimit
		}
	}
	if loc != nil && loc.HostConcurrentLimit != nil && *loc.HostConcurrentLimit > 0 {
		cfg.HostConcurrentLimit = *loc.HostConcurrentLimit
	}
	return cfg
}
