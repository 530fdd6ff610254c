package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type HostRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Host, error)
}

type hostRepository struct {
	pool *pgxpool.Pool
}

func NewHostRepository(pool *pgxpool.Pool) HostRepository {
	return &hostRepository{pool: pool}
}

func (r *hostRepository) FindByID(ctx context.Context, id int64) (*domain.Host, error) {
	const q = `SELECT id, email, name, role, location_id, created_at FROM hosts WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var h domain.Host
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&h.ID, &h.Email, &h.Name, &h.Role, &h.LocationID, &h.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
