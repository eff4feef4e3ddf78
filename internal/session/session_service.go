package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/datatypes"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/shared/apperror"
)

//go:generate mockgen -source=session_service.go -destination=mock/session_service_mock.go -package=mock
type Service interface {
	// IssueRefreshToken creates and persists a new refresh token record,
	// returning the raw token to hand back to the caller exactly once.
	IssueRefreshToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ttl time.Duration, rememberMe bool, ip, userAgent string) (string, error)

	// RotateRefreshToken revokes the presented token and issues a new
	// one atomically. A presented token that is already revoked is
	// treated as replay — every refresh token for that user is revoked
	// and ErrRefreshReplayDetected is returned.
	RotateRefreshToken(ctx context.Context, tx *gorm.DB, rawToken string, ttl time.Duration, ip, userAgent string) (newRaw string, userID uuid.UUID, err error)

	RevokeRefreshToken(ctx context.Context, tx *gorm.DB, rawToken string) error
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error

	IssueInvite(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, functionID *uuid.UUID, teamIDs datatypes.JSON, email, role string, invitedBy uuid.UUID, ttl time.Duration) (string, error)
	ConsumeInvite(ctx context.Context, tx *gorm.DB, rawToken string) (*InviteToken, error)
	ListInvites(ctx context.Context, companyID uuid.UUID) ([]InviteToken, error)
	DeleteInvite(ctx context.Context, companyID, id uuid.UUID) error

	IssuePasswordReset(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ttl time.Duration) (string, error)
	ConsumePasswordReset(ctx context.Context, tx *gorm.DB, rawToken string) (*PasswordResetToken, error)
}

type service struct {
	repo   Repository
	clock  clock.Clock
	logger *zap.Logger
}

func NewService(repo Repository, c clock.Clock, logger ...*zap.Logger) Service {
	l := zap.L().Named("session.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("session.service")
	}
	return &service{repo: repo, clock: c, logger: l}
}

func (s *service) IssueRefreshToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ttl time.Duration, rememberMe bool, ip, userAgent string) (string, error) {
	opaque, err := tokencodec.NewOpaque()
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	record := &RefreshTokenRecord{
		UserID:       userID,
		TokenHash:    opaque.Hash,
		ExpiresAt:    now.Add(ttl),
		IsRememberMe: rememberMe,
		IP:           ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
	}
	if err := s.repo.WithTx(tx).CreateRefreshToken(ctx, record); err != nil {
		return "", err
	}
	return opaque.Raw, nil
}

func (s *service) RotateRefreshToken(ctx context.Context, tx *gorm.DB, rawToken string, ttl time.Duration, ip, userAgent string) (string, uuid.UUID, error) {
	repo := s.repo.WithTx(tx)
	hash := tokencodec.HashOpaque(rawToken)

	record, err := repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return "", uuid.Nil, apperror.ErrUnauthorized
	}

	now := s.clock.Now()
	if record.RevokedAt != nil || record.ExpiresAt.Before(now) {
		s.logger.Warn("refresh token replay detected", zap.String("user_id", record.UserID.String()))
		if err := repo.RevokeAllRefreshTokensForUser(ctx, record.UserID, now); err != nil {
			return "", uuid.Nil, err
		}
		return "", uuid.Nil, apperror.ErrRefreshReplayDetected
	}

	if err := repo.RevokeRefreshToken(ctx, record.ID, now); err != nil {
		return "", uuid.Nil, err
	}

	opaque, err := tokencodec.NewOpaque()
	if err != nil {
		return "", uuid.Nil, err
	}
	newRecord := &RefreshTokenRecord{
		UserID:       record.UserID,
		TokenHash:    opaque.Hash,
		ExpiresAt:    now.Add(ttl),
		IsRememberMe: record.IsRememberMe,
		IP:           ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
	}
	if err := repo.CreateRefreshToken(ctx, newRecord); err != nil {
		return "", uuid.Nil, err
	}

	return opaque.Raw, record.UserID, nil
}

func (s *service) RevokeRefreshToken(ctx context.Context, tx *gorm.DB, rawToken string) error {
	repo := s.repo.WithTx(tx)
	record, err := repo.GetRefreshTokenByHash(ctx, tokencodec.HashOpaque(rawToken))
	if err != nil {
		return nil // logout on an unknown token is a no-op
	}
	return repo.RevokeRefreshToken(ctx, record.ID, s.clock.Now())
}

func (s *service) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return s.repo.WithTx(tx).RevokeAllRefreshTokensForUser(ctx, userID, s.clock.Now())
}

func (s *service) IssueInvite(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, functionID *uuid.UUID, teamIDs datatypes.JSON, email, role string, invitedBy uuid.UUID, ttl time.Duration) (string, error) {
	opaque, err := tokencodec.NewOpaque()
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	invite := &InviteToken{
		TokenHash:   opaque.Hash,
		CompanyID:   companyID,
		FunctionID:  functionID,
		TeamIDs:     teamIDs,
		Email:       email,
		RoleToGrant: role,
		InvitedBy:   invitedBy,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if err := s.repo.WithTx(tx).CreateInviteToken(ctx, invite); err != nil {
		return "", err
	}
	return opaque.Raw, nil
}

func (s *service) ConsumeInvite(ctx context.Context, tx *gorm.DB, rawToken string) (*InviteToken, error) {
	repo := s.repo.WithTx(tx)
	invite, err := repo.GetInviteTokenByHash(ctx, tokencodec.HashOpaque(rawToken))
	if err != nil {
		return nil, apperror.ErrInviteInvalid
	}
	now := s.clock.Now()
	if invite.UsedAt != nil || invite.ExpiresAt.Before(now) {
		return nil, apperror.ErrInviteInvalid
	}
	if err := repo.MarkInviteUsed(ctx, invite.ID, now); err != nil {
		return nil, err
	}
	invite.UsedAt = &now
	return invite, nil
}

func (s *service) ListInvites(ctx context.Context, companyID uuid.UUID) ([]InviteToken, error) {
	return s.repo.ListInvitesForCompany(ctx, companyID)
}

func (s *service) DeleteInvite(ctx context.Context, companyID, id uuid.UUID) error {
	return s.repo.DeleteInvite(ctx, companyID, id)
}

func (s *service) IssuePasswordReset(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ttl time.Duration) (string, error) {
	opaque, err := tokencodec.NewOpaque()
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	reset := &PasswordResetToken{
		TokenHash: opaque.Hash,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.WithTx(tx).CreatePasswordResetToken(ctx, reset); err != nil {
		return "", err
	}
	return opaque.Raw, nil
}

func (s *service) ConsumePasswordReset(ctx context.Context, tx *gorm.DB, rawToken string) (*PasswordResetToken, error) {
	repo := s.repo.WithTx(tx)
	reset, err := repo.GetPasswordResetTokenByHash(ctx, tokencodec.HashOpaque(rawToken))
	if err != nil {
		return nil, apperror.ErrInviteInvalid
	}
	now := s.clock.Now()
	if reset.UsedAt != nil || reset.ExpiresAt.Before(now) {
		return nil, apperror.ErrInviteInvalid
	}
	if err := repo.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
		return nil, err
	}
	reset.UsedAt = &now
	return reset, nil
}
