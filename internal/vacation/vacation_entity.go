// Package vacation implements the vacation request lifecycle state
// machine, overlap checks, and allocation debits. Grounded on
// internal/leave (leave_entity.go/leave_service.go's create/approve/
// reject shape, tx.Commit()-scoped transitions), generalized from a
// single pending→approved/rejected transition to the full
// draft→pending→{approved,rejected,cancelled,withdrawn} machine with
// concurrency-safe approval and allocation accounting.
package vacation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Type string

const (
	TypeAnnual   Type = "annual"
	TypeSick     Type = "sick"
	TypePersonal Type = "personal"
	TypeUnpaid   Type = "unpaid"
	TypeOther    Type = "other"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusWithdrawn Status = "withdrawn"
)

// IsTerminal reports whether s is rejected, cancelled or withdrawn.
// Overlap (I4) counts only pending and approved requests, and
// allocation pending counts only pending ones.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusWithdrawn:
		return true
	default:
		return false
	}
}

type Request struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_request_company_status"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_request_user_dates"`
	TeamID     *uuid.UUID `gorm:"type:uuid"`
	PeriodID   *uuid.UUID `gorm:"type:uuid"`

	StartDate time.Time `gorm:"type:date;not null;index:idx_request_user_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_request_user_dates"`
	Type      Type      `gorm:"type:varchar(20);not null;default:'annual'"`
	Status    Status    `gorm:"type:varchar(20);not null;default:'draft';index:idx_request_company_status"`
	Reason    string    `gorm:"type:text"`
	DaysCount int       `gorm:"not null;default:0"`

	ApproverID      *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt      *time.Time
	ApproverComment string `gorm:"type:text"`
	RejectedReason  string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
