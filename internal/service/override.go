package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/repository"
)

const (
	MinOverrideReasonLen = 10
	MaxOverrideReasonLen = 500
)

var (
	// ErrOverridePassword is retryable: the kiosk keeps the override
	// dialog open and asks again.
	ErrOverridePassword = errors.New("override password incorrect, try again")
	// ErrOverrideForbidden rejects roles below security.
	ErrOverrideForbidden = errors.New("your role is not permitted to override capacity")
	// ErrOverrideInvalid covers missing or out-of-range reason/password.
	ErrOverrideInvalid = errors.New("invalid override request")
)

// OverrideAuthorizer gates the capacity bypass behind role, reason, and
// password checks, and records the audit trail for granted bypasses.
type OverrideAuthorizer struct {
	audits       repository.AuditRepository
	passwordHash string
}

func NewOverrideAuthorizer(audits repository.AuditRepository, passwordHash string) *OverrideAuthorizer {
	return &OverrideAuthorizer{
		audits:       audits,
		passwordHash: passwordHash,
	}
}

// Authorize validates the override request against the acting user. The
// checks run in order: role, then reason shape, then password, so a host
// with the right password is still refused.
func (a *OverrideAuthorizer) Authorize(req *domain.OverrideRequest, actor *domain.Actor) error {
	if actor == nil || !actor.Role.CanOverride() {
		return ErrOverrideForbidden
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" || req.Password == "" {
		return fmt.Errorf("%w: reason and password are required", ErrOverrideInvalid)
	}
	if len(reason) < MinOverrideReasonLen || len(reason) > MaxOverrideReasonLen {
		return fmt.Errorf("%w: reason must be between %d and %d characters", ErrOverrideInvalid, MinOverrideReasonLen, MaxOverrideReasonLen)
	}

	// An unset hash means overrides are disabled; nothing can match.
	if a.passwordHash == "" {
		return ErrOverridePassword
	}
	match, err := argon2id.ComparePasswordAndHash(req.Password, a.passwordHash)
	if err != nil || !match {
		return ErrOverridePassword
	}
	return nil
}

// RecordBypass appends the audit entry for a bypass that was actually used
// to admit a guest.
func (a *OverrideAuthorizer) RecordBypass(ctx context.Context, actor *domain.Actor, targetGuestID int64, reason string) (*domain.OverrideAudit, error) {
	return a.audits.CreateOverride(ctx, actor.UserID, targetGuestID, strings.TrimSpace(reason))
}
