package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/checkin/internal/domain"
)

// CapacityError is returned when the transactional recount finds the host
// already at the concurrent-visitor limit.
type CapacityError struct {
	Current int
	Limit   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("host at capacity: %d of %d active visits", e.Current, e.Limit)
}

type VisitRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Visit, error)
	// CountActiveForHost counts unexpired visits for the host at the
	// location as of now.
	CountActiveForHost(ctx context.Context, hostID, locationID int64, now time.Time) (int, error)
	// CountSince counts visits at a location checked in at or after since
	// (the location's local start of day for daily capacity).
	CountSince(ctx context.Context, locationID int64, since time.Time) (int, error)
	// ListRecentForGuest returns visits checked in strictly after since,
	// newest first.
	ListRecentForGuest(ctx context.Context, guestID int64, since time.Time) ([]domain.Visit, error)
	ListForGuest(ctx context.Context, guestID int64, limit, offset int) ([]domain.Visit, error)
	CountLifetime(ctx context.Context, guestID int64) (int, error)
	// FindActiveForGuest returns the guest's newest unexpired visit, if any.
	FindActiveForGuest(ctx context.Context, guestID int64, now time.Time) (*domain.Visit, error)
	// CreateAdmitted inserts the visit inside a transaction that locks the
	// host row and recounts active visits first, so two kiosks admitting
	// for the same host cannot both slip under the limit. With bypass set
	// the recount is skipped and the row is inserted unconditionally.
	CreateAdmitted(ctx context.Context, v *domain.Visit, limit int, bypass bool) (*domain.Visit, error)
}

type visitRepository struct {
	pool *pgxpool.Pool
}

func NewVisitRepository(pool *pgxpool.Pool) VisitRepository {
	return &visitRepository{pool: pool}
}

const visitCols = `id, guest_id, host_id, location_id, badge_token,
checked_in_at, expires_at, override_reason, override_user_id, created_at`

func (r *visitRepository) GetByID(ctx context.Context, id int64) (*domain.Visit, error) {
	const q = `SELECT ` + visitCols + ` FROM visits WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.Visit
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&v.ID, &v.GuestID, &v.HostID, &v.LocationID, &v.BadgeToken,
		&v.CheckedInAt, &v.ExpiresAt, &v.OverrideReason, &v.OverrideUserID, &v.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *visitRepository) CountActiveForHost(ctx context.Context, hostID, locationID int64, now time.Time) (int, error) {
	const q = `SELECT count(*) FROM visits WHERE host_id=$1 AND location_id=$2 AND expires_at >= $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, q, hostID, locationID, now).Scan(&count)
	return count, err
}

func (r *visitRepository) CountSince(ctx context.Context, locationID int64, since time.Time) (int, error) {
	const q = `SELECT count(*) FROM visits WHERE location_id=$1 AND checked_in_at >= $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, q, locationID, since).Scan(&count)
	return count, err
}

func (r *visitRepository) ListRecentForGuest(ctx context.Context, guestID int64, since time.Time) ([]domain.Visit, error) {
	const q = `SELECT ` + visitCols + ` FROM visits
		WHERE guest_id=$1 AND checked_in_at > $2
		ORDER BY checked_in_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, guestID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVisits(rows)
}

func (r *visitRepository) ListForGuest(ctx context.Context, guestID int64, limit, offset int) ([]domain.Visit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + visitCols + ` FROM visits
		WHERE guest_id=$1 ORDER BY checked_in_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, guestID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVisits(rows)
}

func (r *visitRepository) CountLifetime(ctx context.Context, guestID int64) (int, error) {
	const q = `SELECT count(*) FROM visits WHERE guest_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, q, guestID).Scan(&count)
	return count, err
}

func (r *visitRepository) FindActiveForGuest(ctx context.Context, guestID int64, now time.Time) (*domain.Visit, error) {
	const q = `SELECT ` + visitCols + ` FROM visits
		WHERE guest_id=$1 AND expires_at >= $2
		ORDER BY checked_in_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.Visit
	err := r.pool.QueryRow(ctx, q, guestID, now).Scan(
		&v.ID, &v.GuestID, &v.HostID, &v.LocationID, &v.BadgeToken,
		&v.CheckedInAt, &v.ExpiresAt, &v.OverrideReason, &v.OverrideUserID, &v.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *visitRepository) CreateAdmitted(ctx context.Context, v *domain.Visit, limit int, bypass bool) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if !bypass {
		// Serialize concurrent admissions for the same host, then
		// recount inside the transaction so the capacity decision and
		// the insert are one atomic unit.
		if _, err := tx.Exec(ctx, `SELECT id FROM hosts WHERE id=$1 FOR UPDATE`, v.HostID); err != nil {
			return nil, err
		}

		var count int
		const countQ = `SELECT count(*) FROM visits WHERE host_id=$1 AND location_id=$2 AND expires_at >= $3`
		if err := tx.QueryRow(ctx, countQ, v.HostID, v.LocationID, v.CheckedInAt).Scan(&count); err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, &CapacityError{Current: count, Limit: limit}
		}
	}

	const insertQ = `INSERT INTO visits (
		guest_id, host_id, location_id, badge_token,
		checked_in_at, expires_at, override_reason, override_user_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	RETURNING ` + visitCols

	var created domain.Visit
	err = tx.QueryRow(ctx, insertQ,
		v.GuestID, v.HostID, v.LocationID, v.BadgeToken,
		v.CheckedInAt, v.ExpiresAt, v.OverrideReason, v.OverrideUserID,
	).Scan(
		&created.ID, &created.GuestID, &created.HostID, &created.LocationID, &created.BadgeToken,
		&created.CheckedInAt, &created.ExpiresAt, &created.OverrideReason, &created.OverrideUserID, &created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &created, nil
}

func scanVisits(rows pgx.Rows) ([]domain.Visit, error) {
	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		if err := rows.Scan(
			&v.ID, &v.GuestID, &v.HostID, &v.LocationID, &v.BadgeToken,
			&v.CheckedInAt, &v.ExpiresAt, &v.OverrideReason, &v.OverrideUserID, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
