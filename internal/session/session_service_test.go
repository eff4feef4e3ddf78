package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/session"
	"vacationplanner/internal/shared/apperror"
)

// fakeRepository implements session.Repository. tx is never dereferenced
// by the service (every call forwards it straight to WithTx), so these
// tests pass a nil *gorm.DB throughout.
type fakeRepository struct {
	refreshByHash map[string]*session.RefreshTokenRecord
	invitesByHash map[string]*session.InviteToken
	resetsByHash  map[string]*session.PasswordResetToken

	createRefreshFn      func(ctx context.Context, r *session.RefreshTokenRecord) error
	revokeRefreshFn      func(ctx context.Context, id uuid.UUID, at time.Time) error
	revokeAllFn          func(ctx context.Context, userID uuid.UUID, at time.Time) error
	createInviteFn       func(ctx context.Context, t *session.InviteToken) error
	listInvitesFn        func(ctx context.Context, companyID uuid.UUID) ([]session.InviteToken, error)
	deleteInviteFn       func(ctx context.Context, companyID, id uuid.UUID) error
	createPasswordResetFn func(ctx context.Context, t *session.PasswordResetToken) error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		refreshByHash: map[string]*session.RefreshTokenRecord{},
		invitesByHash: map[string]*session.InviteToken{},
		resetsByHash:  map[string]*session.PasswordResetToken{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) session.Repository { return f }

func (f *fakeRepository) CreateRefreshToken(ctx context.Context, r *session.RefreshTokenRecord) error {
	if f.createRefreshFn != nil {
		return f.createRefreshFn(ctx, r)
	}
	r.ID = uuid.New()
	f.refreshByHash[r.TokenHash] = r
	return nil
}

func (f *fakeRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*session.RefreshTokenRecord, error) {
	r, ok := f.refreshByHash[hash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID, at time.Time) error {
	if f.revokeRefreshFn != nil {
		return f.revokeRefreshFn(ctx, id, at)
	}
	for _, r := range f.refreshByHash {
		if r.ID == id {
			r.RevokedAt = &at
		}
	}
	return nil
}

func (f *fakeRepository) RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if f.revokeAllFn != nil {
		return f.revokeAllFn(ctx, userID, at)
	}
	for _, r := range f.refreshByHash {
		if r.UserID == userID {
			r.RevokedAt = &at
		}
	}
	return nil
}

func (f *fakeRepository) CreateInviteToken(ctx context.Context, t *session.InviteToken) error {
	if f.createInviteFn != nil {
		return f.createInviteFn(ctx, t)
	}
	t.ID = uuid.New()
	f.invitesByHash[t.TokenHash] = t
	return nil
}

func (f *fakeRepository) GetInviteTokenByHash(ctx context.Context, hash string) (*session.InviteToken, error) {
	t, ok := f.invitesByHash[hash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeRepository) MarkInviteUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, t := range f.invitesByHash {
		if t.ID == id {
			t.UsedAt = &at
		}
	}
	return nil
}

func (f *fakeRepository) ListInvitesForCompany(ctx context.Context, companyID uuid.UUID) ([]session.InviteToken, error) {
	if f.listInvitesFn != nil {
		return f.listInvitesFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeRepository) DeleteInvite(ctx context.Context, companyID, id uuid.UUID) error {
	if f.deleteInviteFn != nil {
		return f.deleteInviteFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeRepository) CreatePasswordResetToken(ctx context.Context, t *session.PasswordResetToken) error {
	if f.createPasswordResetFn != nil {
		return f.createPasswordResetFn(ctx, t)
	}
	t.ID = uuid.New()
	f.resetsByHash[t.TokenHash] = t
	return nil
}

func (f *fakeRepository) GetPasswordResetTokenByHash(ctx context.Context, hash string) (*session.PasswordResetToken, error) {
	t, ok := f.resetsByHash[hash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeRepository) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, t := range f.resetsByHash {
		if t.ID == id {
			t.UsedAt = &at
		}
	}
	return nil
}

func TestService_IssueAndRotateRefreshToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFrozen(now)
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	raw, err := svc.IssueRefreshToken(ctx, nil, userID, time.Hour, false, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	t.Run("rotation revokes the old token and issues a fresh one", func(t *testing.T) {
		newRaw, gotUserID, err := svc.RotateRefreshToken(ctx, nil, raw, time.Hour, "10.0.0.1", "test-agent")
		require.NoError(t, err)
		assert.Equal(t, userID, gotUserID)
		assert.NotEqual(t, raw, newRaw)

		old, ok := repo.refreshByHash[tokencodec.HashOpaque(raw)]
		require.True(t, ok)
		assert.NotNil(t, old.RevokedAt)
	})

	t.Run("rotating the same token again is treated as replay", func(t *testing.T) {
		_, _, err := svc.RotateRefreshToken(ctx, nil, raw, time.Hour, "10.0.0.1", "test-agent")
		assert.ErrorIs(t, err, apperror.ErrRefreshReplayDetected)

		for _, r := range repo.refreshByHash {
			if r.UserID == userID {
				assert.NotNil(t, r.RevokedAt)
			}
		}
	})

	t.Run("rotating an unknown token is unauthorized", func(t *testing.T) {
		_, _, err := svc.RotateRefreshToken(ctx, nil, "never-issued", time.Hour, "", "")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestService_RotateRefreshToken_Expired(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	raw, err := svc.IssueRefreshToken(ctx, nil, userID, time.Minute, false, "", "")
	require.NoError(t, err)

	c.Advance(time.Hour)
	_, _, err = svc.RotateRefreshToken(ctx, nil, raw, time.Hour, "", "")
	assert.ErrorIs(t, err, apperror.ErrRefreshReplayDetected)
}

func TestService_RevokeRefreshToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	c := clock.NewFrozen(time.Now())
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	raw, err := svc.IssueRefreshToken(ctx, nil, userID, time.Hour, false, "", "")
	require.NoError(t, err)

	t.Run("revoking a known token marks it revoked", func(t *testing.T) {
		err := svc.RevokeRefreshToken(ctx, nil, raw)
		assert.NoError(t, err)
		assert.NotNil(t, repo.refreshByHash[tokencodec.HashOpaque(raw)].RevokedAt)
	})

	t.Run("revoking an unknown token is a no-op", func(t *testing.T) {
		err := svc.RevokeRefreshToken(ctx, nil, "bogus-token")
		assert.NoError(t, err)
	})
}

func TestService_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	c := clock.NewFrozen(time.Now())
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	_, err := svc.IssueRefreshToken(ctx, nil, userID, time.Hour, false, "", "")
	require.NoError(t, err)
	_, err = svc.IssueRefreshToken(ctx, nil, userID, time.Hour, true, "", "")
	require.NoError(t, err)

	err = svc.RevokeAllForUser(ctx, nil, userID)
	assert.NoError(t, err)
	for _, r := range repo.refreshByHash {
		assert.NotNil(t, r.RevokedAt)
	}
}

func TestService_InviteLifecycle(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	invitedBy := uuid.New()
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	raw, err := svc.IssueInvite(ctx, nil, companyID, nil, nil, "new@example.com", "user", invitedBy, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	t.Run("consuming a fresh invite succeeds exactly once", func(t *testing.T) {
		invite, err := svc.ConsumeInvite(ctx, nil, raw)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", invite.Email)
		assert.NotNil(t, invite.UsedAt)

		_, err = svc.ConsumeInvite(ctx, nil, raw)
		assert.ErrorIs(t, err, apperror.ErrInviteInvalid)
	})

	t.Run("consuming an expired invite fails", func(t *testing.T) {
		expiredRaw, err := svc.IssueInvite(ctx, nil, companyID, nil, nil, "late@example.com", "user", invitedBy, time.Minute)
		require.NoError(t, err)

		c.Advance(time.Hour)
		_, err = svc.ConsumeInvite(ctx, nil, expiredRaw)
		assert.ErrorIs(t, err, apperror.ErrInviteInvalid)
	})

	t.Run("consuming an unknown invite fails", func(t *testing.T) {
		_, err := svc.ConsumeInvite(ctx, nil, "never-issued")
		assert.ErrorIs(t, err, apperror.ErrInviteInvalid)
	})
}

func TestService_PasswordResetLifecycle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := newFakeRepository()
	svc := session.NewService(repo, c)

	raw, err := svc.IssuePasswordReset(ctx, nil, userID, time.Hour)
	require.NoError(t, err)

	reset, err := svc.ConsumePasswordReset(ctx, nil, raw)
	require.NoError(t, err)
	assert.Equal(t, userID, reset.UserID)

	_, err = svc.ConsumePasswordReset(ctx, nil, raw)
	assert.ErrorIs(t, err, apperror.ErrInviteInvalid)
}
