package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type AcceptanceRepository interface {
	// LatestForGuest returns the guest's most recent acceptance row of any
	// age, or nil for a guest who has never accepted the terms.
	LatestForGuest(ctx context.Context, guestID int64) (*domain.Acceptance, error)
	// CreateRenewal issues a fresh 24h acceptance for a returning guest.
	CreateRenewal(ctx context.Context, guestID int64, now time.Time) (*domain.Acceptance, error)
}

type acceptanceRepository struct {
	pool *pgxpool.Pool
}

func NewAcceptanceRepository(pool *pgxpool.Pool) AcceptanceRepository {
	return &acceptanceRepository{pool: pool}
}

const acceptanceCols = `id, guest_id, accepted_at, expires_at, visit_id, invitation_id, created_at`

func (r *acceptanceRepository) LatestForGuest(ctx context.Context, guestID int64) (*domain.Acceptance, error) {
	const q = `SELECT ` + acceptanceCols + ` FROM acceptances
		WHERE guest_id=$1 ORDER BY accepted_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Acceptance
	err := r.pool.QueryRow(ctx, q, guestID).Scan(
		&a.ID, &a.GuestID, &a.AcceptedAt, &a.ExpiresAt, &a.VisitID, &a.InvitationID, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *acceptanceRepository) CreateRenewal(ctx context.Context, guestID int64, now time.Time) (*domain.Acceptance, error) {
	const q = `INSERT INTO acceptances (guest_id, accepted_at, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + acceptanceCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	expires := now.Add(domain.VisitScopedConsentTTL)
	var a domain.Acceptance
	err := r.pool.QueryRow(ctx, q, guestID, now, expires).Scan(
		&a.ID, &a.GuestID, &a.AcceptedAt, &a.ExpiresAt, &a.VisitID, &a.InvitationID, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
