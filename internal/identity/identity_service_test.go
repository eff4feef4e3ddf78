package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/clock"
	"vacationplanner/internal/config"
	"vacationplanner/internal/identity"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/security/passwordhash"
	"vacationplanner/internal/session"
	"vacationplanner/internal/shared/apperror"
)

func newServiceForTest(repo identity.Repository, hasher *passwordhash.Hasher, revoker interface {
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}, c clock.Clock) identity.Service {
	return identity.NewService(nil, repo, hasher, revoker, audit.NewSink(nil, clock.NewReal()), kafkaoutbox.OutboxRepository(nil), c)
}

func testHasher() *passwordhash.Hasher {
	return passwordhash.New(config.HashParams{TimeCost: 1, MemoryKiB: 8 * 1024, Parallelism: 1, SaltLen: 16, KeyLen: 32})
}

// fakeRepository implements identity.Repository, keyed the way the
// fakes in session/calendar/vacation are: function-field overrides with
// a sane default, backed by an in-memory map for the handful of methods
// these tests actually drive through create/update/lookup cycles.
type fakeRepository struct {
	usersByID    map[uuid.UUID]*identity.User
	usersByEmail map[string]*identity.User

	createUserFn func(ctx context.Context, u *identity.User) error
	deleteUserFn func(ctx context.Context, companyID, id uuid.UUID) error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByID:    map[uuid.UUID]*identity.User{},
		usersByEmail: map[string]*identity.User{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) identity.Repository { return f }

func (f *fakeRepository) CreateUser(ctx context.Context, u *identity.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, u)
	}
	u.ID = uuid.New()
	f.usersByID[u.ID] = u
	f.usersByEmail[u.Email] = u
	return nil
}

func (f *fakeRepository) UpdateUser(ctx context.Context, u *identity.User) error {
	f.usersByID[u.ID] = u
	f.usersByEmail[u.Email] = u
	return nil
}

func (f *fakeRepository) DeleteUser(ctx context.Context, companyID, id uuid.UUID) error {
	if f.deleteUserFn != nil {
		return f.deleteUserFn(ctx, companyID, id)
	}
	delete(f.usersByID, id)
	return nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, companyID, id uuid.UUID) (*identity.User, error) {
	u, ok := f.usersByID[id]
	if !ok || u.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepository) GetUserByIDAnyCompany(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepository) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	u, ok := f.usersByEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepository) ListUsers(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]identity.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeRepository) GetCompanyByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListFunctions(ctx context.Context, companyID uuid.UUID) ([]identity.Function, error) {
	return nil, nil
}

func (f *fakeRepository) ListTeams(ctx context.Context, companyID uuid.UUID) ([]identity.Team, error) {
	return nil, nil
}

func (f *fakeRepository) GetTeamByID(ctx context.Context, companyID, id uuid.UUID) (*identity.Team, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateMembership(ctx context.Context, m *identity.TeamMembership) error { return nil }

func (f *fakeRepository) ActiveTeamIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeRepository) ActiveMemberUserIDsForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeRepository) CreateManagerAssignment(ctx context.Context, m *identity.ManagerAssignment) error {
	return nil
}

func (f *fakeRepository) ManagedTeamIDsForManager(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeRepository) CreateCompany(ctx context.Context, co *identity.Company) error { return nil }

func (f *fakeRepository) UpdateCompany(ctx context.Context, co *identity.Company) error { return nil }

func (f *fakeRepository) DeleteCompany(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeRepository) CreateFunction(ctx context.Context, fn *identity.Function) error { return nil }

func (f *fakeRepository) GetFunctionByID(ctx context.Context, companyID, id uuid.UUID) (*identity.Function, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateFunction(ctx context.Context, fn *identity.Function) error { return nil }

func (f *fakeRepository) DeleteFunction(ctx context.Context, companyID, id uuid.UUID) error { return nil }

func (f *fakeRepository) CreateTeam(ctx context.Context, t *identity.Team) error { return nil }

func (f *fakeRepository) UpdateTeam(ctx context.Context, t *identity.Team) error { return nil }

func (f *fakeRepository) DeleteTeam(ctx context.Context, companyID, id uuid.UUID) error { return nil }

func (f *fakeRepository) FindActiveMembership(ctx context.Context, userID, teamID uuid.UUID) (*identity.TeamMembership, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) EndMembership(ctx context.Context, id uuid.UUID, leftAt time.Time) error {
	return nil
}

func (f *fakeRepository) FindManagerAssignment(ctx context.Context, managerID, teamID uuid.UUID) (*identity.ManagerAssignment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) DeleteManagerAssignment(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeRepository) CountManagerAssignmentsForUser(ctx context.Context, managerID uuid.UUID) (int64, error) {
	return 0, nil
}

// fakeTokenRevoker implements identity's tokenRevoker capability.
type fakeTokenRevoker struct {
	revokedFor []uuid.UUID
}

func (f *fakeTokenRevoker) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	f.revokedFor = append(f.revokedFor, userID)
	return nil
}

func TestService_CreateUserFromInvite(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := newServiceForTest(repo, testHasher(), &fakeTokenRevoker{}, clock.NewReal())

	invite := &session.InviteToken{
		CompanyID:   uuid.New(),
		Email:       "new@example.com",
		RoleToGrant: "user",
	}

	t.Run("valid password creates the user", func(t *testing.T) {
		u, err := svc.CreateUserFromInvite(ctx, nil, invite, "StrongPass123!", "Ada", "Lovelace")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", u.Email)
		assert.Equal(t, identity.RoleUser, u.Role)
		assert.True(t, u.IsActive)
		assert.NotEqual(t, "StrongPass123!", u.PasswordHash)
	})

	t.Run("weak password is rejected before any write", func(t *testing.T) {
		_, err := svc.CreateUserFromInvite(ctx, nil, invite, "weak", "Ada", "Lovelace")
		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.ErrWeakPassword.Code, appErr.Code)
	})

	t.Run("duplicate email maps to a conflict error", func(t *testing.T) {
		dupRepo := newFakeRepository()
		dupRepo.createUserFn = func(ctx context.Context, u *identity.User) error {
			return gorm.ErrDuplicatedKey
		}
		dupSvc := newServiceForTest(dupRepo, testHasher(), &fakeTokenRevoker{}, clock.NewReal())
		_, err := dupSvc.CreateUserFromInvite(ctx, nil, invite, "StrongPass123!", "Ada", "Lovelace")
		assert.ErrorIs(t, err, apperror.ErrDuplicateUniqueKey)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	hasher := testHasher()
	repo := newFakeRepository()
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := newServiceForTest(repo, hasher, &fakeTokenRevoker{}, c)

	hash, err := hasher.Hash("CorrectHorse12!")
	require.NoError(t, err)
	repo.usersByEmail["user@example.com"] = &identity.User{
		ID: uuid.New(), Email: "user@example.com", PasswordHash: hash, IsActive: true,
	}
	repo.usersByID[repo.usersByEmail["user@example.com"].ID] = repo.usersByEmail["user@example.com"]

	t.Run("correct credentials authenticate", func(t *testing.T) {
		u, needsRehash, err := svc.Authenticate(ctx, "user@example.com", "CorrectHorse12!")
		require.NoError(t, err)
		assert.False(t, needsRehash)
		assert.Equal(t, "user@example.com", u.Email)
		assert.NotNil(t, u.LastLoginAt)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "user@example.com", "wrong-password")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})

	t.Run("unknown email is rejected the same way as a wrong password", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	hasher := testHasher()
	repo := newFakeRepository()
	revoker := &fakeTokenRevoker{}
	svc := newServiceForTest(repo, hasher, revoker, clock.NewReal())

	hash, err := hasher.Hash("OldPassword123!")
	require.NoError(t, err)
	user := &identity.User{ID: uuid.New(), PasswordHash: hash}

	t.Run("wrong current password is rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, nil, user, "not-the-current-password", "NewPassword123!")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})

	t.Run("correct current password and a strong new password succeeds and revokes sessions", func(t *testing.T) {
		err := svc.ChangePassword(ctx, nil, user, "OldPassword123!", "NewPassword123!")
		require.NoError(t, err)
		assert.Contains(t, revoker.revokedFor, user.ID)

		res, err := hasher.Verify(user.PasswordHash, "NewPassword123!")
		require.NoError(t, err)
		assert.True(t, res.Match)
	})
}

func TestService_SoftDeleteUser(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	repo := newFakeRepository()
	revoker := &fakeTokenRevoker{}
	svc := newServiceForTest(repo, testHasher(), revoker, clock.NewReal())

	target := &identity.User{ID: uuid.New(), CompanyID: companyID, IsActive: true}
	repo.usersByID[target.ID] = target

	t.Run("non-admin actor is forbidden", func(t *testing.T) {
		actor := &identity.User{Role: identity.RoleManager, CompanyID: companyID}
		err := svc.SoftDeleteUser(ctx, nil, actor, target.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("admin actor deactivates and revokes sessions", func(t *testing.T) {
		actor := &identity.User{Role: identity.RoleAdmin, CompanyID: companyID}
		err := svc.SoftDeleteUser(ctx, nil, actor, target.ID)
		require.NoError(t, err)
		assert.Contains(t, revoker.revokedFor, target.ID)
	})

	t.Run("unknown target maps to not found", func(t *testing.T) {
		actor := &identity.User{Role: identity.RoleAdmin, CompanyID: companyID}
		err := svc.SoftDeleteUser(ctx, nil, actor, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	repo := newFakeRepository()
	svc := newServiceForTest(repo, testHasher(), &fakeTokenRevoker{}, clock.NewReal())

	user := &identity.User{ID: uuid.New(), CompanyID: companyID}
	repo.usersByID[user.ID] = user

	t.Run("found", func(t *testing.T) {
		got, err := svc.GetByID(ctx, companyID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("not found maps to ErrNotFound", func(t *testing.T) {
		_, err := svc.GetByID(ctx, companyID, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("cross-tenant lookup is treated as not found", func(t *testing.T) {
		_, err := svc.GetByID(ctx, uuid.New(), user.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
