package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type LocationRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Location, error)
}

type locationRepository struct {
	pool *pgxpool.Pool
}

func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) FindByID(ctx context.Context, id int64) (*domain.Location, error) {
	const q = `SELECT id, name, timezone, active, max_daily_visits, cutoff_hour,
		host_concurrent_limit, created_at
		FROM locations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var l domain.Location
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&l.ID, &l.Name, &l.Timezone, &l.Active, &l.MaxDailyVisits, &l.CutoffHour,
		&l.HostConcurrentLimit, &l.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
