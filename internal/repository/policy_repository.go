package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/pkg/logger"
)

type PolicyRepository interface {
	// GetForLocation returns the location-scoped policy row, falling back
	// to the global row, or nil when neither is configured.
	GetForLocation(ctx context.Context, locationID int64) (*domain.Policy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

func (r *policyRepository) GetForLocation(ctx context.Context, locationID int64) (*domain.Policy, error) {
	// Location-scoped rows win over the global singleton.
	const q = `SELECT id, location_id, guest_monthly_limit, host_concurrent_limit, updated_at
		FROM policies
		WHERE location_id = $1 OR location_id IS NULL
		ORDER BY location_id NULLS LAST
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Policy
	err := r.pool.QueryRow(ctx, q, locationID).Scan(
		&p.ID, &p.LocationID, &p.GuestMonthlyLimit, &p.HostConcurrentLimit, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CachedPolicyRepository fronts the database with a short-TTL redis cache.
// The TTL bounds how long a policy change can go unnoticed; admin edits
// apply within one TTL window without explicit invalidation.
type CachedPolicyRepository struct {
	inner PolicyRepository
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedPolicyRepository(inner PolicyRepository, rdb *redis.Client, ttl time.Duration) *CachedPolicyRepository {
	return &CachedPolicyRepository{inner: inner, rdb: rdb, ttl: ttl}
}

type cachedPolicy struct {
	Policy *domain.Policy `json:"policy"`
}

func (c *CachedPolicyRepository) GetForLocation(ctx context.Context, locationID int64) (*domain.Policy, error) {
	key := fmt.Sprintf("policy:loc:%d", locationID)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var cached cachedPolicy
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached.Policy, nil
		}
	}

	p, err := c.inner.GetForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cachedPolicy{Policy: p}); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.WarnContext(ctx, "Failed to cache policy", "error", err, "location_id", locationID)
		}
	}

	return p, nil
}
