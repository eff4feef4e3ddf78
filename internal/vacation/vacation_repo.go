package vacation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListFilter struct {
	CompanyID uuid.UUID
	UserIDs   []uuid.UUID // scope-narrowed by AuthzKernel; nil means unrestricted within company
	Status    Status
	TeamID    *uuid.UUID
	From      *time.Time
	To        *time.Time
}

//go:generate mockgen -source=vacation_repo.go -destination=mock/vacation_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, r *Request) error
	Update(ctx context.Context, r *Request) error
	FindByIDAndCompany(ctx context.Context, companyID, id uuid.UUID) (*Request, error)
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Request, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]Request, int64, error)
	HasOverlap(ctx context.Context, userID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	SumPendingDays(ctx context.Context, userID, periodID uuid.UUID) (int, error)
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

func (r *repository) Create(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) Update(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id uuid.UUID) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByIDForUpdate locks the request row for the duration of the
// transition transaction: the row-level lock is held until the
// allocation update commits.
func (r *repository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ?", companyID).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) List(ctx context.Context, f ListFilter, limit, offset int) ([]Request, int64, error) {
	q := r.db.WithContext(ctx).Model(&Request{}).Where("company_id = ?", f.CompanyID)
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TeamID != nil {
		q = q.Where("team_id = ?", *f.TeamID)
	}
	if f.From != nil {
		q = q.Where("end_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_date <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []Request
	err := q.Order("start_date DESC").Limit(limit).Offset(offset).Find(&requests).Error
	return requests, total, err
}

// HasOverlap implements I4: pending or approved requests for the user
// must not share a calendar day.
func (r *repository) HasOverlap(ctx context.Context, userID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&Request{}).
		Where("user_id = ?", userID).
		Where("status IN ?", []Status{StatusPending, StatusApproved}).
		Where("NOT (end_date < ? OR start_date > ?)", start, end)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *repository) SumPendingDays(ctx context.Context, userID, periodID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Request{}).
		Where("user_id = ? AND period_id = ? AND status = ?", userID, periodID, StatusPending).
		Select("COALESCE(SUM(days_count), 0)").
		Scan(&total).Error
	return int(total), err
}
