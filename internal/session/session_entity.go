// Package session implements refresh-token records, invite tokens, and
// password-reset tokens, generalized from a single stateless JWT
// refresh token to persisted, revocable opaque records.
package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RefreshTokenRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_refresh_user"`
	TokenHash    string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt    time.Time `gorm:"not null"`
	RevokedAt    *time.Time
	LastUsedAt   *time.Time
	UserAgent    string `gorm:"type:text"`
	IP           string `gorm:"type:varchar(64)"`
	IsRememberMe bool   `gorm:"not null;default:false"`

	CreatedAt time.Time
}

type InviteToken struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TokenHash   string      `gorm:"type:varchar(64);not null;uniqueIndex"`
	CompanyID   uuid.UUID   `gorm:"type:uuid;not null"`
	FunctionID  *uuid.UUID     `gorm:"type:uuid"`
	TeamIDs     datatypes.JSON `gorm:"type:jsonb"`
	Email       string         `gorm:"type:varchar(255);not null"`
	RoleToGrant string      `gorm:"type:varchar(20);not null"`
	InvitedBy   uuid.UUID   `gorm:"type:uuid;not null"`
	ExpiresAt   time.Time   `gorm:"not null"`
	UsedAt      *time.Time

	CreatedAt time.Time
}

type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TokenHash string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time

	CreatedAt time.Time
}
