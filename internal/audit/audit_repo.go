package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows Query's result set.
type Filter struct {
	CompanyID  uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

//go:generate mockgen -source=audit_repo.go -destination=mock/audit_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, e *Event) error
	Query(ctx context.Context, f Filter, limit, offset int) ([]Event, error)
	FindByIDAndCompany(ctx context.Context, companyID, id uuid.UUID) (*Event, error)
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

// Insert is the only write Repository exposes — there is deliberately
// no Update or Delete, enforcing I6 at the type level.
func (r *repository) Insert(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) Query(ctx context.Context, f Filter, limit, offset int) ([]Event, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", f.CompanyID)
	if f.ActorID != nil {
		q = q.Where("actor_id = ?", *f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		q = q.Where("entity_id = ?", *f.EntityID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var events []Event
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id uuid.UUID) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&e, "id = ?", id).Error
	return &e, err
}
