package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=calendar_repo.go -destination=mock/calendar_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindCoveringPeriods(ctx context.Context, companyID uuid.UUID, date time.Time) ([]VacationPeriod, error)
	FindDefaultPeriod(ctx context.Context, companyID uuid.UUID) (*VacationPeriod, error)
	CreatePeriod(ctx context.Context, p *VacationPeriod) error
	UpdatePeriod(ctx context.Context, p *VacationPeriod) error
	ListPeriods(ctx context.Context, companyID uuid.UUID) ([]VacationPeriod, error)
	GetPeriodByID(ctx context.Context, companyID, id uuid.UUID) (*VacationPeriod, error)

	GetAllocation(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error)
	GetAllocationForUpdate(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error)
	CreateAllocation(ctx context.Context, a *VacationAllocation) error
	UpdateAllocation(ctx context.Context, a *VacationAllocation) error
	ListAllocationsForUser(ctx context.Context, userID uuid.UUID) ([]VacationAllocation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindCoveringPeriods(ctx context.Context, companyID uuid.UUID, date time.Time) ([]VacationPeriod, error) {
	var periods []VacationPeriod
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ? AND start_date <= ? AND end_date >= ?", companyID, true, date, date).
		Order("is_default DESC, start_date ASC, name ASC").
		Find(&periods).Error
	return periods, err
}

func (r *repository) FindDefaultPeriod(ctx context.Context, companyID uuid.UUID) (*VacationPeriod, error) {
	var p VacationPeriod
	err := r.db.WithContext(ctx).Where("company_id = ? AND is_default = ?", companyID, true).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreatePeriod(ctx context.Context, p *VacationPeriod) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) UpdatePeriod(ctx context.Context, p *VacationPeriod) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) ListPeriods(ctx context.Context, companyID uuid.UUID) ([]VacationPeriod, error) {
	var periods []VacationPeriod
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("start_date DESC").Find(&periods).Error
	return periods, err
}

func (r *repository) GetPeriodByID(ctx context.Context, companyID, id uuid.UUID) (*VacationPeriod, error) {
	var p VacationPeriod
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetAllocation(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error) {
	var a VacationAllocation
	err := r.db.WithContext(ctx).Where("user_id = ? AND period_id = ?", userID, periodID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAllocationForUpdate locks the allocation row for the duration of
// the caller's transaction, the per-row write lock approve/cancel's
// days_used mutation requires.
func (r *repository) GetAllocationForUpdate(ctx context.Context, userID, periodID uuid.UUID) (*VacationAllocation, error) {
	var a VacationAllocation
	err := r.db.WithContext(ctx).
		Clauses(lockingClause()).
		Where("user_id = ? AND period_id = ?", userID, periodID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) CreateAllocation(ctx context.Context, a *VacationAllocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) UpdateAllocation(ctx context.Context, a *VacationAllocation) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *repository) ListAllocationsForUser(ctx context.Context, userID uuid.UUID) ([]VacationAllocation, error) {
	var allocations []VacationAllocation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&allocations).Error
	return allocations, err
}
