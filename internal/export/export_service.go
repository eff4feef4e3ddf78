package export

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/vacation"
)

const batchSize = 500

// managedUserResolver mirrors vacation.Service's narrow slice of
// identity.Service, kept local so export doesn't import all of vacation's
// dependency surface just to resolve a manager's team.
type managedUserResolver interface {
	ManagedUserIDs(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*identity.User, error)
}

//go:generate mockgen -source=export_service.go -destination=mock/export_service_mock.go -package=mock
type Service interface {
	// Stream writes every row the Principal's scope and Filter admit to
	// w, serialized as format. Rows are paged out of vacation.Repository
	// in batchSize chunks, but every row is collected in memory before
	// the first row is written to w. A restart after a partial write simply
	// re-runs the query rather than resuming an in-flight cursor — the
	// output only needs to be reproducible, not resumable mid-stream.
	Stream(ctx context.Context, principal authz.Principal, filter Filter, format Format, w io.Writer) error
}

type service struct {
	vacationRepo vacation.Repository
	identity     managedUserResolver
	kernel       authz.Kernel
	logger       *zap.Logger
}

func NewService(vacationRepo vacation.Repository, identitySvc managedUserResolver, kernel authz.Kernel, logger ...*zap.Logger) Service {
	l := zap.L().Named("export.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("export.service")
	}
	return &service{vacationRepo: vacationRepo, identity: identitySvc, kernel: kernel, logger: l}
}

func (s *service) Stream(ctx context.Context, principal authz.Principal, filter Filter, format Format, w io.Writer) error {
	if err := s.kernel.Authorize(ctx, principal, authz.ResourceVacationRequest, authz.VerbList); err != nil {
		return err
	}

	listFilter := vacation.ListFilter{
		CompanyID: principal.CompanyID,
		Status:    filter.Status,
		TeamID:    filter.TeamID,
		From:      filter.From,
		To:        filter.To,
	}
	switch scope := s.kernel.ScopeFor(principal, authz.ResourceVacationRequest); scope.Kind {
	case authz.ScopeOwnUser:
		listFilter.UserIDs = []uuid.UUID{scope.OwnerUserID}
	case authz.ScopeManagedTeamUsers:
		managed, err := s.identity.ManagedUserIDs(ctx, principal.UserID)
		if err != nil {
			return err
		}
		listFilter.UserIDs = managed
	}
	if filter.UserID != nil {
		if len(listFilter.UserIDs) > 0 && !containsUUID(listFilter.UserIDs, *filter.UserID) {
			return apperror.ErrForbidden
		}
		listFilter.UserIDs = []uuid.UUID{*filter.UserID}
	}

	switch format {
	case FormatXLSX:
		return s.streamXLSX(ctx, listFilter, w)
	default:
		return s.streamCSV(ctx, listFilter, w)
	}
}

func (s *service) rows(ctx context.Context, filter vacation.ListFilter) ([]Row, error) {
	userCache := make(map[uuid.UUID]*identity.User)
	resolve := func(id uuid.UUID) *identity.User {
		if u, ok := userCache[id]; ok {
			return u
		}
		u, err := s.identity.GetByID(ctx, filter.CompanyID, id)
		if err != nil {
			s.logger.Warn("export: user lookup failed", zap.String("user_id", id.String()), zap.Error(err))
			u = nil
		}
		userCache[id] = u
		return u
	}

	var out []Row
	offset := 0
	for {
		requests, _, err := s.vacationRepo.List(ctx, filter, batchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(requests) == 0 {
			break
		}
		for _, r := range requests {
			row := Row{
				RequestID:      r.ID.String(),
				Type:           string(r.Type),
				Status:         string(r.Status),
				StartDate:      r.StartDate.Format("2006-01-02"),
				EndDate:        r.EndDate.Format("2006-01-02"),
				DaysCount:      r.DaysCount,
				Reason:         r.Reason,
				RejectedReason: r.RejectedReason,
			}
			if u := resolve(r.UserID); u != nil {
				row.UserEmail = u.Email
				row.UserFullName = u.FullName()
			}
			if r.ApproverID != nil {
				if approver := resolve(*r.ApproverID); approver != nil {
					row.ApproverEmail = approver.Email
				}
			}
			if r.ApprovedAt != nil {
				row.ApprovedAt = r.ApprovedAt.Format("2006-01-02T15:04:05Z07:00")
			}
			out = append(out, row)
		}
		if len(requests) < batchSize {
			break
		}
		offset += batchSize
	}
	return out, nil
}

func (s *service) streamCSV(ctx context.Context, filter vacation.ListFilter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	rows, err := s.rows(ctx, filter)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *service) streamXLSX(ctx context.Context, filter vacation.ListFilter, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Vacations"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}

	rows, err := s.rows(ctx, filter)
	if err != nil {
		return err
	}
	for r, row := range rows {
		for c, v := range row.values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f.Write(w)
}

func containsUUID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
