package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type DiscountRepository interface {
	ExistsForGuest(ctx context.Context, guestID int64) (bool, error)
	Create(ctx context.Context, guestID, visitID int64) (*domain.Discount, error)
}

type discountRepository struct {
	pool *pgxpool.Pool
}

func NewDiscountRepository(pool *pgxpool.Pool) DiscountRepository {
	return &discountRepository{pool: pool}
}

func (r *discountRepository) ExistsForGuest(ctx context.Context, guestID int64) (bool, error) {
	const q = `SELECT 1 FROM discounts WHERE guest_id=$1 LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var one int
	err := r.pool.QueryRow(ctx, q, guestID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *discountRepository) Create(ctx context.Context, guestID, visitID int64) (*domain.Discount, error) {
	// The unique index on guest_id is the idempotency guard; a concurrent
	// duplicate insert is treated as already-issued.
	const q = `INSERT INTO discounts (guest_id, visit_id, issued_at)
		VALUES ($1, $2, now())
		ON CONFLICT (guest_id) DO NOTHING
		RETURNING id, guest_id, visit_id, issued_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.Discount
	err := r.pool.QueryRow(ctx, q, guestID, visitID).Scan(&d.ID, &d.GuestID, &d.VisitID, &d.IssuedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
