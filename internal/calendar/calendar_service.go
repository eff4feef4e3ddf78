package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"vacationplanner/internal/shared/apperror"
)

// Balance is the point-in-time projection for (user, period). It never
// mutates state.
type Balance struct {
	Period         VacationPeriod
	TotalAvailable int
	Remaining      int
	Pending        int
}

//go:generate mockgen -source=calendar_service.go -destination=mock/calendar_service_mock.go -package=mock
type Service interface {
	WithTx(tx *gorm.DB) Service

	// BusinessDays counts weekdays in [start, end] inclusive (P7, B1).
	BusinessDays(start, end time.Time) int

	// ResolvePeriod finds the covering period for date within company,
	// materializing an Apr1-Mar31 default period on demand if no
	// period covers the date. Concurrent resolves for the same (company, date)
	// collapse via singleflight so on-demand creation cannot race into
	// a duplicate default.
	ResolvePeriod(ctx context.Context, companyID uuid.UUID, date time.Time) (*VacationPeriod, error)

	GetAllocation(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error)
	GetAllocationForUpdate(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error)
	AdjustDaysUsed(ctx context.Context, allocation *VacationAllocation, delta int, allowOverdraft bool) error

	Balance(ctx context.Context, userID uuid.UUID, period *VacationPeriod, pendingDays int) (Balance, error)

	ListPeriods(ctx context.Context, companyID uuid.UUID) ([]VacationPeriod, error)
	GetPeriod(ctx context.Context, companyID, id uuid.UUID) (*VacationPeriod, error)
	CreatePeriod(ctx context.Context, p *VacationPeriod) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
	group  *singleflight.Group
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("calendar.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("calendar.service")
	}
	return &service{repo: repo, logger: l, group: &singleflight.Group{}}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), logger: s.logger, group: s.group}
}

func (s *service) BusinessDays(start, end time.Time) int {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) ResolvePeriod(ctx context.Context, companyID uuid.UUID, date time.Time) (*VacationPeriod, error) {
	key := fmt.Sprintf("%s:%s", companyID, truncateToDate(date).Format("2006-01-02"))
	v, err, _ := s.group.Do(key, func() (any, error) {
		periods, err := s.repo.FindCoveringPeriods(ctx, companyID, truncateToDate(date))
		if err != nil {
			return nil, err
		}
		if len(periods) > 0 {
			p := periods[0]
			return &p, nil
		}
		return s.materializeDefaultPeriod(ctx, companyID, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*VacationPeriod), nil
}

// materializeDefaultPeriod covers a date no existing period covers: the
// April 1 to March 31 window containing it is created on demand, marked
// is_default only if no default already exists elsewhere.
func (s *service) materializeDefaultPeriod(ctx context.Context, companyID uuid.UUID, date time.Time) (*VacationPeriod, error) {
	year := date.Year()
	start := time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	if date.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	end := start.AddDate(1, 0, -1)

	_, err := s.repo.FindDefaultPeriod(ctx, companyID)
	isDefault := errors.Is(err, gorm.ErrRecordNotFound)

	p := &VacationPeriod{
		CompanyID: companyID,
		Name:      fmt.Sprintf("%d-%d", start.Year(), end.Year()),
		StartDate: start,
		EndDate:   end,
		IsDefault: isDefault,
		IsActive:  true,
	}
	if err := s.repo.CreatePeriod(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetAllocation(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error) {
	a, err := s.repo.GetAllocation(ctx, userID, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &VacationAllocation{UserID: userID, PeriodID: periodID}, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *service) GetAllocationForUpdate(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error) {
	a, err := s.repo.GetAllocationForUpdate(ctx, userID, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fresh := &VacationAllocation{UserID: userID, PeriodID: periodID}
			if err := s.repo.CreateAllocation(ctx, fresh); err != nil {
				return nil, err
			}
			return s.repo.GetAllocationForUpdate(ctx, userID, periodID)
		}
		return nil, err
	}
	return a, nil
}

// AdjustDaysUsed applies delta (positive on approve, negative on
// cancel-of-approved) under the caller's row lock. allowOverdraft is
// false on the approve path, per policy default deny (AllocationExceeded).
func (s *service) AdjustDaysUsed(ctx context.Context, allocation *VacationAllocation, delta int, allowOverdraft bool) error {
	newUsed := allocation.DaysUsed + delta
	if !allowOverdraft && newUsed > allocation.TotalAvailable() {
		return apperror.ErrAllocationExceeded
	}
	if newUsed < 0 {
		newUsed = 0
	}
	allocation.DaysUsed = newUsed
	return s.repo.UpdateAllocation(ctx, allocation)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID, period *VacationPeriod, pendingDays int) (Balance, error) {
	a, err := s.GetAllocation(ctx, userID, period.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		Period:         *period,
		TotalAvailable: a.TotalAvailable(),
		Remaining:      a.Remaining(),
		Pending:        pendingDays,
	}, nil
}

func (s *service) ListPeriods(ctx context.Context, companyID uuid.UUID) ([]VacationPeriod, error) {
	return s.repo.ListPeriods(ctx, companyID)
}

func (s *service) GetPeriod(ctx context.Context, companyID, id uuid.UUID) (*VacationPeriod, error) {
	p, err := s.repo.GetPeriodByID(ctx, companyID, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	return p, nil
}

func (s *service) CreatePeriod(ctx context.Context, p *VacationPeriod) error {
	return s.repo.CreatePeriod(ctx, p)
}
