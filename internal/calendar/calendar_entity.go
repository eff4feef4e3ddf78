// Package calendar implements business-day computation, vacation-
// period resolution, and balance projection. Grounded on the leave
// module's date arithmetic (leave_service.go's totalDays computation),
// generalized from a fixed calendar-day count to a weekday-only
// business-day count and a resolvable multi-period model.
package calendar

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VacationPeriod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_period_company_name,unique"`
	Name      string    `gorm:"type:varchar(120);not null;index:idx_period_company_name,unique"`
	StartDate time.Time `gorm:"type:date;not null;index:idx_period_company_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_period_company_dates"`
	IsDefault bool      `gorm:"not null;default:false"`
	IsActive  bool      `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type VacationAllocation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_user_period"`
	PeriodID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_user_period"`
	TotalDays       int       `gorm:"not null;default:0"`
	CarriedOverDays int       `gorm:"not null;default:0"`
	DaysUsed        int       `gorm:"not null;default:0"`
	Notes           string    `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a VacationAllocation) TotalAvailable() int { return a.TotalDays + a.CarriedOverDays }
func (a VacationAllocation) Remaining() int      { return a.TotalAvailable() - a.DaysUsed }
