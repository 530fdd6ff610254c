package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type GuestRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Guest, error)
	// GetOrCreate returns the guest record for email, creating a minimal
	// one on first scan. An existing record keeps its name unless it was
	// previously empty.
	GetOrCreate(ctx context.Context, email, name string) (*domain.Guest, error)
}

type guestRepository struct {
	pool *pgxpool.Pool
}

func NewGuestRepository(pool *pgxpool.Pool) GuestRepository {
	return &guestRepository{pool: pool}
}

const guestCols = `id, email, name, country, contact_method, contact_value,
blacklisted_at, profile_complete, created_at, updated_at`

func (r *guestRepository) FindByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guest
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&g.ID, &g.Email, &g.Name, &g.Country, &g.ContactMethod, &g.ContactValue,
		&g.BlacklistedAt, &g.ProfileComplete, &g.CreatedAt, &g.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *guestRepository) GetOrCreate(ctx context.Context, email, name string) (*domain.Guest, error) {
	const q = `INSERT INTO guests (email, name)
		VALUES (lower($1), $2)
		ON CONFLICT (email) DO UPDATE SET
			name = CASE WHEN guests.name = '' AND excluded.name != '' THEN excluded.name ELSE guests.name END,
			updated_at = now()
		RETURNING ` + guestCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guest
	err := r.pool.QueryRow(ctx, q, strings.TrimSpace(email), strings.TrimSpace(name)).Scan(
		&g.ID, &g.Email, &g.Name, &g.Country, &g.ContactMethod, &g.ContactValue,
		&g.BlacklistedAt, &g.ProfileComplete, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
