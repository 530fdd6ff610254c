package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

type AuditRepository interface {
	// CreateOverride appends an override audit entry. Entries are never
	// updated or deleted.
	CreateOverride(ctx context.Context, userID, targetGuestID int64, reason string) (*domain.OverrideAudit, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) CreateOverride(ctx context.Context, userID, targetGuestID int64, reason string) (*domain.OverrideAudit, error) {
	const q = `INSERT INTO override_audit (id, user_id, target_guest_id, reason, password_verified, created_at)
		VALUES ($1, $2, $3, $4, true, now())
		RETURNING id, user_id, target_guest_id, reason, password_verified, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var entry domain.OverrideAudit
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), userID, targetGuestID, reason).Scan(
		&entry.ID, &entry.UserID, &entry.TargetGuestID, &entry.Reason,
		&entry.PasswordVerified, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
