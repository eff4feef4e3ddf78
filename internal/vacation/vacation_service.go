package vacation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/authz"
	"vacationplanner/internal/calendar"
	"vacationplanner/internal/clock"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/shared/apperror"
)

// managedUserResolver is the slice of identity.Service the engine needs
// to check "approver ∈ managed-team set for the owner".
type managedUserResolver interface {
	ManagedUserIDs(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
}

//go:generate mockgen -source=vacation_service.go -destination=mock/vacation_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, principal authz.Principal, req CreateRequest) (Response, error)
	Submit(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error)
	Modify(ctx context.Context, principal authz.Principal, id uuid.UUID, req ModifyRequest) (Response, error)
	Approve(ctx context.Context, principal authz.Principal, id uuid.UUID, req ApproveRequest) (Response, error)
	Reject(ctx context.Context, principal authz.Principal, id uuid.UUID, req RejectRequest) (Response, error)
	Cancel(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error)
	Withdraw(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error)
	Get(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error)
	List(ctx context.Context, principal authz.Principal, status Status, teamID *uuid.UUID, limit, offset int) ([]Response, int64, error)
	Balance(ctx context.Context, principal authz.Principal, at time.Time) (BalanceResponse, error)
}

type service struct {
	db         *gorm.DB
	repo       Repository
	calendar   calendar.Service
	kernel     authz.Kernel
	identity   managedUserResolver
	audit      audit.Sink
	outboxRepo kafkaoutbox.OutboxRepository
	clock      clock.Clock
	logger     *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	cal calendar.Service,
	kernel authz.Kernel,
	identitySvc managedUserResolver,
	auditSink audit.Sink,
	outboxRepo kafkaoutbox.OutboxRepository,
	c clock.Clock,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("vacation.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("vacation.service")
	}
	return &service{
		db: db, repo: repo, calendar: cal, kernel: kernel,
		identity: identitySvc, audit: auditSink, outboxRepo: outboxRepo,
		clock: c, logger: l,
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperror.ErrInvalidInput
	}
	return t.UTC(), nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) Create(ctx context.Context, principal authz.Principal, req CreateRequest) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbCreate); err != nil {
		return Response{}, err
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return Response{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return Response{}, err
	}
	if end.Before(start) {
		return Response{}, apperror.ErrInvalidInput
	}
	today := truncateToDate(s.clock.Now())
	if start.Before(today) {
		return Response{}, apperror.ErrDateInPast
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	// Draft rows never count toward overlap (I4 only guards
	// pending/approved), so period resolution and the overlap check
	// only run on the path that submits immediately.
	status := StatusDraft
	var periodID *uuid.UUID
	repo := s.repo.WithTx(tx)
	if req.SubmitImmediately {
		cal := s.calendar.WithTx(tx)
		period, err := cal.ResolvePeriod(ctx, principal.CompanyID, start)
		if err != nil {
			return Response{}, err
		}
		overlap, err := repo.HasOverlap(ctx, principal.UserID, start, end, nil)
		if err != nil {
			return Response{}, err
		}
		if overlap {
			return Response{}, apperror.ErrOverlappingRequest
		}
		status = StatusPending
		periodID = &period.ID
	}

	days := s.calendar.BusinessDays(start, end)
	r := &Request{
		CompanyID: principal.CompanyID,
		UserID:    principal.UserID,
		PeriodID:  periodID,
		StartDate: start,
		EndDate:   end,
		Type:      req.Type,
		Status:    status,
		Reason:    req.Reason,
		DaysCount: days,
	}
	if err := repo.Create(ctx, r); err != nil {
		return Response{}, err
	}

	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID:  principal.CompanyID,
		ActorID:    &principal.UserID,
		Action:     audit.ActionRequestCreated,
		EntityType: "vacation_request",
		EntityID:   &r.ID,
		After:      mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}

	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

// Submit transitions an owner's draft to pending, running the same
// period-resolution and overlap checks Create runs on the
// submit-immediately path.
func (s *service) Submit(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbUpdate); err != nil {
		return Response{}, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	r, err := repo.FindByIDForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, notFoundOrTenant(err)
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}
	if r.UserID != principal.UserID && !principal.IsAdmin() {
		return Response{}, apperror.ErrForbidden
	}
	if r.Status != StatusDraft {
		return Response{}, apperror.ErrInvalidState
	}

	cal := s.calendar.WithTx(tx)
	period, err := cal.ResolvePeriod(ctx, principal.CompanyID, r.StartDate)
	if err != nil {
		return Response{}, err
	}
	overlap, err := repo.HasOverlap(ctx, r.UserID, r.StartDate, r.EndDate, &r.ID)
	if err != nil {
		return Response{}, err
	}
	if overlap {
		return Response{}, apperror.ErrOverlappingRequest
	}

	before := mapToResponse(*r)
	r.Status = StatusPending
	r.PeriodID = &period.ID
	if err := repo.Update(ctx, r); err != nil {
		return Response{}, err
	}
	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID: principal.CompanyID, ActorID: &principal.UserID,
		Action: audit.ActionRequestModified, EntityType: "vacation_request", EntityID: &r.ID,
		Before: before, After: mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) Modify(ctx context.Context, principal authz.Principal, id uuid.UUID, req ModifyRequest) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbUpdate); err != nil {
		return Response{}, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	r, err := repo.FindByIDForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, notFoundOrTenant(err)
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}
	if r.UserID != principal.UserID && !principal.IsAdmin() {
		return Response{}, apperror.ErrForbidden
	}
	if r.Status != StatusDraft {
		return Response{}, apperror.ErrNotPending
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return Response{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return Response{}, err
	}
	if end.Before(start) {
		return Response{}, apperror.ErrInvalidInput
	}

	overlap, err := repo.HasOverlap(ctx, r.UserID, start, end, &r.ID)
	if err != nil {
		return Response{}, err
	}
	if overlap {
		return Response{}, apperror.ErrOverlappingRequest
	}

	before := mapToResponse(*r)
	cal := s.calendar.WithTx(tx)
	period, err := cal.ResolvePeriod(ctx, principal.CompanyID, start)
	if err != nil {
		return Response{}, err
	}

	r.StartDate = start
	r.EndDate = end
	r.Type = req.Type
	r.Reason = req.Reason
	r.PeriodID = &period.ID
	r.DaysCount = s.calendar.BusinessDays(start, end)

	if err := repo.Update(ctx, r); err != nil {
		return Response{}, err
	}
	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID: principal.CompanyID, ActorID: &principal.UserID,
		Action: audit.ActionRequestModified, EntityType: "vacation_request", EntityID: &r.ID,
		Before: before, After: mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) Approve(ctx context.Context, principal authz.Principal, id uuid.UUID, req ApproveRequest) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbApprove); err != nil {
		return Response{}, err
	}
	if !principal.IsAdmin() && !principal.IsManager() {
		return Response{}, apperror.ErrForbidden
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	r, err := repo.FindByIDForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, notFoundOrTenant(err)
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}
	if r.UserID == principal.UserID {
		return Response{}, apperror.ErrForbidden
	}
	if !principal.IsAdmin() {
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return Response{}, err
		}
		if !slices.Contains(managed, r.UserID) {
			return Response{}, apperror.ErrForbidden
		}
	}
	if r.Status != StatusPending {
		return Response{}, apperror.ErrNotPending
	}

	cal := s.calendar.WithTx(tx)
	allocation, err := cal.GetAllocationForUpdate(ctx, r.UserID, *r.PeriodID)
	if err != nil {
		return Response{}, err
	}
	if err := cal.AdjustDaysUsed(ctx, allocation, r.DaysCount, false); err != nil {
		return Response{}, err
	}

	now := s.clock.Now()
	before := mapToResponse(*r)
	r.Status = StatusApproved
	r.ApproverID = &principal.UserID
	r.ApprovedAt = &now
	r.ApproverComment = req.Comment
	if err := repo.Update(ctx, r); err != nil {
		return Response{}, err
	}

	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID: principal.CompanyID, ActorID: &principal.UserID,
		Action: audit.ActionRequestApproved, EntityType: "vacation_request", EntityID: &r.ID,
		Before: before, After: mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) Reject(ctx context.Context, principal authz.Principal, id uuid.UUID, req RejectRequest) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbReject); err != nil {
		return Response{}, err
	}
	if !principal.IsAdmin() && !principal.IsManager() {
		return Response{}, apperror.ErrForbidden
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	r, err := repo.FindByIDForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, notFoundOrTenant(err)
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}
	if r.UserID == principal.UserID {
		return Response{}, apperror.ErrForbidden
	}
	if !principal.IsAdmin() {
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return Response{}, err
		}
		if !slices.Contains(managed, r.UserID) {
			return Response{}, apperror.ErrForbidden
		}
	}
	if r.Status != StatusPending {
		return Response{}, apperror.ErrNotPending
	}

	before := mapToResponse(*r)
	r.Status = StatusRejected
	r.ApproverID = &principal.UserID
	r.RejectedReason = req.Reason
	if err := repo.Update(ctx, r); err != nil {
		return Response{}, err
	}
	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID: principal.CompanyID, ActorID: &principal.UserID,
		Action: audit.ActionRequestRejected, EntityType: "vacation_request", EntityID: &r.ID,
		Before: before, After: mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) Cancel(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error) {
	return s.cancelInternal(ctx, principal, id, audit.ActionRequestCancelled, false)
}

func (s *service) Withdraw(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error) {
	return s.cancelInternal(ctx, principal, id, audit.ActionRequestWithdrawn, true)
}

// cancelInternal backs both cancel and withdraw: withdraw is cancel
// restricted to an approved request before its start_date.
func (s *service) cancelInternal(ctx context.Context, principal authz.Principal, id uuid.UUID, action string, withdrawOnly bool) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbCancel); err != nil {
		return Response{}, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Response{}, tx.Error
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	r, err := repo.FindByIDForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, notFoundOrTenant(err)
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}

	isOwner := r.UserID == principal.UserID
	if !isOwner && !principal.IsAdmin() {
		if !principal.IsManager() {
			return Response{}, apperror.ErrForbidden
		}
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return Response{}, err
		}
		if !slices.Contains(managed, r.UserID) {
			return Response{}, apperror.ErrForbidden
		}
	}

	if r.Status.IsTerminal() {
		return Response{}, apperror.ErrNotPending
	}
	if withdrawOnly {
		if r.Status != StatusApproved {
			return Response{}, apperror.ErrNotPending
		}
		if !r.StartDate.After(truncateToDate(s.clock.Now())) {
			return Response{}, apperror.ErrInvalidState
		}
	}

	before := mapToResponse(*r)
	wasApproved := r.Status == StatusApproved

	if wasApproved && r.PeriodID != nil {
		cal := s.calendar.WithTx(tx)
		allocation, err := cal.GetAllocationForUpdate(ctx, r.UserID, *r.PeriodID)
		if err != nil {
			return Response{}, err
		}
		if err := cal.AdjustDaysUsed(ctx, allocation, -r.DaysCount, true); err != nil {
			return Response{}, err
		}
	}

	if withdrawOnly {
		r.Status = StatusWithdrawn
	} else {
		r.Status = StatusCancelled
	}
	if err := repo.Update(ctx, r); err != nil {
		return Response{}, err
	}
	if err := s.audit.Record(ctx, tx, s.outboxRepo, audit.Record{
		CompanyID: principal.CompanyID, ActorID: &principal.UserID,
		Action: action, EntityType: "vacation_request", EntityID: &r.ID,
		Before: before, After: mapToResponse(*r),
	}); err != nil {
		return Response{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) Get(ctx context.Context, principal authz.Principal, id uuid.UUID) (Response, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbRead); err != nil {
		return Response{}, err
	}
	r, err := s.repo.FindByIDAndCompany(ctx, principal.CompanyID, id)
	if err != nil {
		return Response{}, apperror.ErrNotFound
	}
	if err := s.kernel.CheckTenant(principal, r.CompanyID); err != nil {
		return Response{}, err
	}
	scope := s.kernel.ScopeFor(principal, authz.ResourceVacationRequest)
	if err := s.checkScope(ctx, principal, scope, r.UserID); err != nil {
		return Response{}, err
	}
	return mapToResponse(*r), nil
}

func (s *service) checkScope(ctx context.Context, principal authz.Principal, scope authz.Scope, ownerID uuid.UUID) error {
	switch scope.Kind {
	case authz.ScopeAny:
		return nil
	case authz.ScopeOwnUser:
		if ownerID != scope.OwnerUserID {
			return apperror.ErrCrossTenantAccess
		}
		return nil
	case authz.ScopeManagedTeamUsers:
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return err
		}
		if !slices.Contains(managed, ownerID) {
			return apperror.ErrCrossTenantAccess
		}
		return nil
	}
	return apperror.ErrForbidden
}

func (s *service) List(ctx context.Context, principal authz.Principal, status Status, teamID *uuid.UUID, limit, offset int) ([]Response, int64, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbList); err != nil {
		return nil, 0, err
	}
	scope := s.kernel.ScopeFor(principal, authz.ResourceVacationRequest)

	f := ListFilter{CompanyID: principal.CompanyID, Status: status, TeamID: teamID}
	switch scope.Kind {
	case authz.ScopeOwnUser:
		f.UserIDs = []uuid.UUID{principal.UserID}
	case authz.ScopeManagedTeamUsers:
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return nil, 0, err
		}
		f.UserIDs = managed
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	reqs, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(reqs), total, nil
}

func (s *service) Balance(ctx context.Context, principal authz.Principal, at time.Time) (BalanceResponse, error) {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceAllocation, authz.VerbRead); err != nil {
		return BalanceResponse{}, err
	}
	period, err := s.calendar.ResolvePeriod(ctx, principal.CompanyID, at)
	if err != nil {
		return BalanceResponse{}, err
	}
	pending, err := s.repo.SumPendingDays(ctx, principal.UserID, period.ID)
	if err != nil {
		return BalanceResponse{}, err
	}
	bal, err := s.calendar.Balance(ctx, principal.UserID, period, pending)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{
		PeriodID:       bal.Period.ID.String(),
		PeriodName:     bal.Period.Name,
		TotalAvailable: bal.TotalAvailable,
		Remaining:      bal.Remaining,
		Pending:        bal.Pending,
	}, nil
}

func notFoundOrTenant(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return err
}
