package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/payload"
	"github.com/gatewise/checkin/internal/policy"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/pkg/auth"
	"github.com/gatewise/checkin/pkg/config"
	"github.com/gatewise/checkin/pkg/events"
	"github.com/gatewise/checkin/pkg/logger"
	"github.com/gatewise/checkin/pkg/mailer"
)

// Failure codes produced by the orchestrator itself, on top of the policy
// suite's codes.
const (
	CodeInvalidGuest         = "INVALID_GUEST"
	CodeConsentRenewalFailed = "CONSENT_RENEWAL_FAILED"
	CodeSystemError          = "SYSTEM_ERROR"
)

type CheckinService interface {
	Process(ctx context.Context, req *domain.CheckinRequest, actor *domain.Actor) (*domain.CheckinResponse, error)
}

type checkinService struct {
	guests    repository.GuestRepository
	hosts     repository.HostRepository
	locations repository.LocationRepository
	visits    repository.VisitRepository
	policies  repository.PolicyRepository
	consent   *ConsentResolver
	override  *OverrideAuthorizer
	discounts *DiscountEvaluator
	bus       events.Publisher
	mail      mailer.TermsMailer
	cfg       *config.Config
}

func NewCheckinService(
	guests repository.GuestRepository,
	hosts repository.HostRepository,
	locations repository.LocationRepository,
	visits repository.VisitRepository,
	policies repository.PolicyRepository,
	consent *ConsentResolver,
	override *OverrideAuthorizer,
	discounts *DiscountEvaluator,
	bus events.Publisher,
	mail mailer.TermsMailer,
	cfg *config.Config,
) CheckinService {
	return &checkinService{
		guests:    guests,
		hosts:     hosts,
		locations: locations,
		visits:    visits,
		policies:  policies,
		consent:   consent,
		override:  override,
		discounts: discounts,
		bus:       bus,
		mail:      mail,
		cfg:       cfg,
	}
}

// Process runs the full check-in pipeline: decode the payload, authorize an
// inline override once for the request, then walk the guests sequentially
// in submission order. A per-guest failure lands in that guest's result and
// never aborts later guests; only undecodable payloads and unknown
// host/location abort the whole request.
func (s *checkinService) Process(ctx context.Context, req *domain.CheckinRequest, actor *domain.Actor) (*domain.CheckinResponse, error) {
	now := time.Now()

	p, err := payload.DecodeRequest(req)
	if err != nil {
		return nil, err
	}

	guests := p.Guests
	var tokenExpiry *time.Time
	if p.Kind == payload.KindLegacyToken {
		claims, err := auth.ParseLegacyQR(p.Token, s.cfg.Auth.LegacyQRSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy token verification failed", payload.ErrMalformed)
		}
		guests = claims.GuestRefs()
		tokenExpiry = claims.TokenExpiry()
	}
	if len(guests) == 0 {
		return nil, fmt.Errorf("%w: no guests in payload", payload.ErrMalformed)
	}

	host, err := s.hosts.FindByID(ctx, req.HostID)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, domain.ErrHostNotFound
	}

	loc, err := s.locations.FindByID(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.ErrLocationNotFound
	}

	policyRow, err := s.policies.GetForLocation(ctx, loc.ID)
	if err != nil {
		// Policy reads are race-tolerant; fall back to defaults rather
		// than refusing the whole kiosk.
		logger.WarnContext(ctx, "Failed to load policy, using defaults", "error", err, "location_id", loc.ID)
		policyRow = nil
	}
	policyCfg := domain.ResolvePolicyConfig(policyRow, loc)

	// An inline override is authorized once per request. Role, reason, and
	// password failures abort before any guest is processed so the kiosk
	// can keep the dialog open.
	bypass := false
	if req.Override != nil {
		if err := s.override.Authorize(req.Override, actor); err != nil {
			return nil, err
		}
		bypass = true
	}

	baseCount, err := s.visits.CountActiveForHost(ctx, host.ID, loc.ID, now)
	if err != nil {
		return nil, err
	}

	resp := &domain.CheckinResponse{Success: true}

	// admitted is the running tally for intra-batch capacity accounting:
	// guest N sees the admissions of guests 1..N-1 within this request on
	// top of the datastore count.
	admitted := 0
	for _, ref := range guests {
		res := s.processGuest(ctx, ref, host, loc, policyCfg, tokenExpiry, req.Override, actor, bypass, baseCount+admitted, now)
		if res.Success && !res.ReEntry {
			admitted++
		}
		if res.Success {
			resp.Summary.Successful++
		} else {
			resp.Summary.Failed++
		}
		resp.Results = append(resp.Results, res)
	}

	return resp, nil
}

func (s *checkinService) processGuest(
	ctx context.Context,
	ref domain.GuestRef,
	host *domain.Host,
	loc *domain.Location,
	policyCfg domain.PolicyConfig,
	tokenExpiry *time.Time,
	ovr *domain.OverrideRequest,
	actor *domain.Actor,
	bypass bool,
	activeCount int,
	now time.Time,
) domain.GuestResult {
	res := domain.GuestResult{
		GuestEmail: strings.ToLower(strings.TrimSpace(ref.Email)),
		GuestName:  strings.TrimSpace(ref.Name),
	}

	if res.GuestEmail == "" {
		res.Code = CodeInvalidGuest
		res.Reason = "Guest entry is missing an email address"
		return res
	}

	guest, err := s.guests.GetOrCreate(ctx, res.GuestEmail, res.GuestName)
	if err != nil {
		return s.systemFailure(ctx, res, err, "guest lookup")
	}
	if res.GuestName == "" {
		res.GuestName = guest.Name
	}

	if r := policy.CheckBlacklist(guest); !r.Valid {
		return s.rejected(ctx, res, r, host, loc)
	}

	// Re-entry: an active visit with the same host just re-admits without
	// re-running the pipeline. An active visit with a different host is
	// flagged but does not block.
	active, err := s.visits.FindActiveForGuest(ctx, guest.ID, now)
	if err != nil {
		return s.systemFailure(ctx, res, err, "active visit lookup")
	}
	if active != nil {
		if active.HostID == host.ID {
			res.Success = true
			res.ReEntry = true
			res.VisitID = active.ID
			s.publishAdmitted(ctx, active, res, true)
			return res
		}
		res.ActiveElsewhere = true
	}

	if r := policy.CheckCutoffHour(loc, s.cfg.Checkin.GlobalCutoffHour, now); !r.Valid {
		return s.rejected(ctx, res, r, host, loc)
	}

	todays, err := s.visits.CountSince(ctx, loc.ID, startOfDay(loc, now))
	if err != nil {
		return s.systemFailure(ctx, res, err, "daily visit count")
	}
	if r := policy.CheckLocationCapacity(loc, todays); !r.Valid {
		return s.rejected(ctx, res, r, host, loc)
	}

	recent, err := s.visits.ListRecentForGuest(ctx, guest.ID, now.Add(-domain.MonthlyWindow))
	if err != nil {
		return s.systemFailure(ctx, res, err, "monthly visit lookup")
	}
	if r := policy.CheckMonthlyLimit(recent, policyCfg, now); !r.Valid {
		res.NextEligibleAt = r.NextEligibleAt
		return s.rejected(ctx, res, r, host, loc)
	}

	outcome, err := s.consent.Resolve(ctx, guest.ID, now)
	if err != nil {
		if errors.Is(err, ErrConsentRenewal) {
			res.Code = CodeConsentRenewalFailed
			res.Reason = "Unable to process guest terms update, please contact support"
			return res
		}
		return s.systemFailure(ctx, res, err, "consent lookup")
	}
	if outcome.State == domain.ConsentNeverAccepted {
		s.sendTermsEmail(ctx, guest)
		res.Code = policy.CodeConsentRequired
		res.Reason = "Guest needs to accept the visitor terms, an email is on its way"
		return res
	}
	res.AcceptanceRenewed = outcome.Renewed

	overrideUsed := false
	if r := policy.CheckHostConcurrent(activeCount, policyCfg); !r.Valid {
		if !bypass {
			res.Code = r.Code
			res.Reason = r.Message
			res.RequiresOverride = true
			res.CurrentCount = r.CurrentCount
			res.MaxCount = r.MaxCount
			s.publishRejected(ctx, res, host, loc)
			return res
		}
		overrideUsed = true
	}

	if r := policy.CheckTokenExpiry(tokenExpiry, now); !r.Valid {
		return s.rejected(ctx, res, r, host, loc)
	}

	visit := &domain.Visit{
		GuestID:     guest.ID,
		HostID:      host.ID,
		LocationID:  loc.ID,
		BadgeToken:  uuid.NewString(),
		CheckedInAt: now,
		ExpiresAt:   now.Add(s.cfg.Checkin.VisitDuration),
	}
	if overrideUsed {
		visit.OverrideReason = &ovr.Reason
		visit.OverrideUserID = &actor.UserID
	}

	created, err := s.visits.CreateAdmitted(ctx, visit, policyCfg.HostConcurrentLimit, overrideUsed)
	var capErr *repository.CapacityError
	if errors.As(err, &capErr) && bypass && !overrideUsed {
		// A concurrent request filled the last slot between the pre-check
		// and the insert. The authorized override covers this admission
		// too; retry with the bypass and stamp the visit accordingly.
		overrideUsed = true
		visit.OverrideReason = &ovr.Reason
		visit.OverrideUserID = &actor.UserID
		created, err = s.visits.CreateAdmitted(ctx, visit, policyCfg.HostConcurrentLimit, true)
	}
	if errors.As(err, &capErr) {
		// A concurrent request won the transactional recount.
		res.Code = policy.CodeHostAtCapacity
		res.Reason = fmt.Sprintf("Host already has %d active visitors (limit %d)", capErr.Current, capErr.Limit)
		res.RequiresOverride = true
		res.CurrentCount = capErr.Current
		res.MaxCount = capErr.Limit
		s.publishRejected(ctx, res, host, loc)
		return res
	}
	if err != nil {
		return s.systemFailure(ctx, res, err, "visit creation")
	}

	if overrideUsed {
		if _, err := s.override.RecordBypass(ctx, actor, guest.ID, ovr.Reason); err != nil {
			logger.ErrorContext(ctx, "Failed to write override audit entry", "error", err, "guest_id", guest.ID, "user_id", actor.UserID)
		}
	}

	res.Success = true
	res.VisitID = created.ID

	sent, err := s.discounts.Evaluate(ctx, guest.ID, created.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Discount evaluation failed", "error", err, "guest_id", guest.ID)
	}
	res.DiscountSent = sent

	s.publishAdmitted(ctx, created, res, false)
	return res
}

func (s *checkinService) rejected(ctx context.Context, res domain.GuestResult, r policy.Result, host *domain.Host, loc *domain.Location) domain.GuestResult {
	res.Code = r.Code
	res.Reason = r.Message
	if r.CurrentCount > 0 || r.MaxCount > 0 {
		res.CurrentCount = r.CurrentCount
		res.MaxCount = r.MaxCount
	}
	s.publishRejected(ctx, res, host, loc)
	return res
}

func (s *checkinService) systemFailure(ctx context.Context, res domain.GuestResult, err error, op string) domain.GuestResult {
	logger.ErrorContext(ctx, "Check-in system failure", "error", err, "op", op, "guest_email", res.GuestEmail)
	res.Code = CodeSystemError
	res.Reason = "A technical issue interrupted this check-in, please contact support"
	return res
}

func (s *checkinService) sendTermsEmail(ctx context.Context, guest *domain.Guest) {
	email, name := guest.Email, guest.Name
	go func() {
		if err := s.mail.SendTermsRequest(email, name); err != nil {
			logger.Error("Failed to send visitor terms email", "error", err, "email", email)
		}
	}()

	// Mirror the request onto the bus so other channels (SMS, dashboard)
	// can pick it up.
	if s.bus == nil {
		return
	}
	event := events.NotificationEvent{
		Type:      "terms_request",
		Recipient: email,
		Subject:   "Please accept the visitor terms",
		Template:  "terms_request",
		Data:      map[string]interface{}{"name": name},
	}
	if err := s.bus.Publish(ctx, events.NotifySend, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish notification event", "error", err, "email", email)
	}
}

func (s *checkinService) publishAdmitted(ctx context.Context, v *domain.Visit, res domain.GuestResult, reentry bool) {
	if s.bus == nil {
		return
	}
	event := events.CheckinAdmittedEvent{
		VisitID:     v.ID,
		GuestEmail:  res.GuestEmail,
		GuestName:   res.GuestName,
		HostID:      v.HostID,
		LocationID:  v.LocationID,
		CheckedInAt: v.CheckedInAt,
		Override:    v.OverrideReason != nil,
		ReEntry:     reentry,
	}
	if err := s.bus.Publish(ctx, events.CheckinAdmitted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in admitted event", "error", err, "visit_id", v.ID)
	}
}

func (s *checkinService) publishRejected(ctx context.Context, res domain.GuestResult, host *domain.Host, loc *domain.Location) {
	if s.bus == nil {
		return
	}
	event := events.CheckinRejectedEvent{
		GuestEmail: res.GuestEmail,
		HostID:     host.ID,
		LocationID: loc.ID,
		Code:       res.Code,
		Reason:     res.Reason,
	}
	if err := s.bus.Publish(ctx, events.CheckinRejected, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in rejected event", "error", err, "guest_email", res.GuestEmail)
	}
}

// startOfDay returns midnight of the current day in the location's
// timezone, falling back to UTC when the zone is unknown.
func startOfDay(loc *domain.Location, now time.Time) time.Time {
	tz, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		tz = time.UTC
	}
	local := now.In(tz)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tz)
}
