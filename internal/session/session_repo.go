package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=session_repo.go -destination=mock/session_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRefreshToken(ctx context.Context, r *RefreshTokenRecord) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID, at time.Time) error

	CreateInviteToken(ctx context.Context, t *InviteToken) error
	GetInviteTokenByHash(ctx context.Context, hash string) (*InviteToken, error)
	MarkInviteUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	ListInvitesForCompany(ctx context.Context, companyID uuid.UUID) ([]InviteToken, error)
	DeleteInvite(ctx context.Context, companyID, id uuid.UUID) error

	CreatePasswordResetToken(ctx context.Context, t *PasswordResetToken) error
	GetPasswordResetTokenByHash(ctx context.Context, hash string) (*PasswordResetToken, error)
	MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, at time.Time) error
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

func (r *repository) CreateRefreshToken(ctx context.Context, t *RefreshTokenRecord) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error) {
	var t RefreshTokenRecord
	// SELECT ... FOR UPDATE: the row is locked for the duration of the
	// rotation transaction so a concurrent replay cannot race the revoke.
	err := r.db.WithContext(ctx).Clauses(lockingClause()).Where("token_hash = ?", hash).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) RevokeRefreshToken(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&RefreshTokenRecord{}).
		Where("id = ?", id).
		Update("revoked_at", at).Error
}

func (r *repository) RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&RefreshTokenRecord{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

func (r *repository) CreateInviteToken(ctx context.Context, t *InviteToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) GetInviteTokenByHash(ctx context.Context, hash string) (*InviteToken, error) {
	var t InviteToken
	err := r.db.WithContext(ctx).Clauses(lockingClause()).Where("token_hash = ?", hash).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) MarkInviteUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&InviteToken{}).Where("id = ?", id).Update("used_at", at).Error
}

func (r *repository) ListInvitesForCompany(ctx context.Context, companyID uuid.UUID) ([]InviteToken, error) {
	var invites []InviteToken
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("created_at DESC").Find(&invites).Error
	return invites, err
}

func (r *repository) DeleteInvite(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&InviteToken{}, "id = ?", id).Error
}

func (r *repository) CreatePasswordResetToken(ctx context.Context, t *PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) GetPasswordResetTokenByHash(ctx context.Context, hash string) (*PasswordResetToken, error) {
	var t PasswordResetToken
	err := r.db.WithContext(ctx).Clauses(lockingClause()).Where("token_hash = ?", hash).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&PasswordResetToken{}).Where("id = ?", id).Update("used_at", at).Error
}
