package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/datatypes"
)

// Role is a User's coarse authorization tier. Request authorization
// uses the role claim carried in the access token; it is not re-read
// from IdentityStore on each request.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Company is the root of every tenant subtree (I1).
type Company struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name     string         `gorm:"type:varchar(255);not null"`
	Slug     string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Domain   *string        `gorm:"type:varchar(255)"`
	Settings datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Function is a department, adapted from the department module.
type Function struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_function_company_code,unique"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Code      string    `gorm:"type:varchar(30);not null;index:idx_function_company_code,unique"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Team struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null"`
	FunctionID uuid.UUID `gorm:"type:uuid;not null;index:idx_team_function_code,unique"`
	Name       string    `gorm:"type:varchar(255);not null"`
	Code       string    `gorm:"type:varchar(30);not null;index:idx_team_function_code,unique"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_company_email"`
	PrimaryFunctionID  *uuid.UUID `gorm:"type:uuid"`
	Email              string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_email_active,where:deleted_at IS NULL"`
	FirstName          string     `gorm:"type:varchar(120);not null"`
	LastName           string     `gorm:"type:varchar(120);not null"`
	PasswordHash       string     `gorm:"type:varchar(255);not null"`
	Role               Role       `gorm:"type:varchar(20);not null;default:'user'"`
	IsActive           bool       `gorm:"not null;default:true"`
	EmailVerified      bool       `gorm:"not null;default:false"`
	LastLoginAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TeamMembership models (user, team) with historical retention: rows
// with LeftAt set stay for audit history but do not count as active.
type TeamMembership struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_membership_user_team_active"`
	TeamID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_membership_user_team_active"`
	IsPrimary bool       `gorm:"not null;default:false"`
	JoinedAt  time.Time  `gorm:"not null"`
	LeftAt    *time.Time
}

type ManagerAssignment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ManagerUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_manager_team_unique"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_manager_team_unique"`
	AssignedBy    uuid.UUID `gorm:"type:uuid;not null"`
	AssignedAt    time.Time `gorm:"not null"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
