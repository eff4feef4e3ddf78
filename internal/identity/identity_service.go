package identity

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/datatypes"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/clock"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/security/passwordhash"
	"vacationplanner/internal/session"
	"vacationplanner/internal/shared/apperror"
)

//go:generate mockgen -source=identity_service.go -destination=mock/identity_service_mock.go -package=mock
type Service interface {
	// CreateUserFromInvite consumes invite (already validated by the
	// caller's session.Service.ConsumeInvite, same transaction), applies
	// the password policy, hashes, and creates the user in one commit.
	CreateUserFromInvite(ctx context.Context, tx *gorm.DB, invite *session.InviteToken, password, firstName, lastName string) (*User, error)

	// Authenticate fetches by (email, is_active, not deleted) and
	// verifies the hash. On a non-existent email it still runs a dummy
	// hash verify so failure timing doesn't leak account existence.
	Authenticate(ctx context.Context, email, password string) (*User, bool, error)

	ChangePassword(ctx context.Context, tx *gorm.DB, user *User, currentPassword, newPassword string) error

	// SetPassword applies a new password without verifying the current
	// one, for the password-reset-confirm flow where PasswordResetToken
	// already proved ownership.
	SetPassword(ctx context.Context, tx *gorm.DB, user *User, newPassword string) error
	SoftDeleteUser(ctx context.Context, tx *gorm.DB, actor *User, targetID uuid.UUID) error

	GetByID(ctx context.Context, companyID, id uuid.UUID) (*User, error)

	// GetByEmail is used only by the password-reset-request flow, which
	// must look a user up before it has any authenticated context.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIDAnyCompany resolves a user before the caller knows their
	// company, same restriction as Repository.GetUserByIDAnyCompany:
	// only the token/session layer may call this.
	GetByIDAnyCompany(ctx context.Context, id uuid.UUID) (*User, error)

	ListUsers(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]User, int64, error)
	UpdateUser(ctx context.Context, u *User) error

	GetCompany(ctx context.Context, id uuid.UUID) (*Company, error)
	CreateCompany(ctx context.Context, actor *User, name, slug string) (*Company, error)
	UpdateCompany(ctx context.Context, actor *User, id uuid.UUID, name, slug string) (*Company, error)
	DeleteCompany(ctx context.Context, actor *User, id uuid.UUID) error

	ListFunctions(ctx context.Context, companyID uuid.UUID) ([]Function, error)
	CreateFunction(ctx context.Context, actor *User, companyID uuid.UUID, name, code string) (*Function, error)
	UpdateFunction(ctx context.Context, actor *User, companyID, id uuid.UUID, name, code string) (*Function, error)
	DeleteFunction(ctx context.Context, actor *User, companyID, id uuid.UUID) error

	ListTeams(ctx context.Context, companyID uuid.UUID) ([]Team, error)
	GetTeam(ctx context.Context, companyID, id uuid.UUID) (*Team, error)
	CreateTeam(ctx context.Context, actor *User, companyID, functionID uuid.UUID, name, code string) (*Team, error)
	UpdateTeam(ctx context.Context, actor *User, companyID, id uuid.UUID, name, code string) (*Team, error)
	DeleteTeam(ctx context.Context, actor *User, companyID, id uuid.UUID) error

	// AddTeamMember/RemoveTeamMember are callable by Admin for any team
	// and by Manager only for a team in their own managed set.
	AddTeamMember(ctx context.Context, actor *User, teamID, userID uuid.UUID) error
	RemoveTeamMember(ctx context.Context, actor *User, teamID, userID uuid.UUID) error

	// AssignTeamManager promotes the target user to Manager if they
	// aren't already one; RemoveTeamManager demotes them back to User
	// once they manage zero remaining teams.
	AssignTeamManager(ctx context.Context, actor *User, teamID, userID uuid.UUID) error
	RemoveTeamManager(ctx context.Context, actor *User, teamID, userID uuid.UUID) error

	ActiveTeamIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ManagedTeamIDsForManager(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
	ManagedUserIDs(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
}

// tokenRevoker is the slice of session.Service identity needs, kept
// narrow so identity depends on a capability, not the whole package.
type tokenRevoker interface {
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type service struct {
	db       *gorm.DB
	repo     Repository
	hasher   *passwordhash.Hasher
	sessions tokenRevoker
	audit    audit.Sink
	outbox   kafkaoutbox.OutboxRepository
	clock    clock.Clock
	logger   *zap.Logger
}

// NewService's db/audit/outbox triple is only exercised by the
// org-structure and membership operations below, which — unlike the
// user lifecycle methods above — aren't already running inside a
// caller-managed transaction, so the service opens and audits its own.
func NewService(db *gorm.DB, repo Repository, hasher *passwordhash.Hasher, sessions tokenRevoker, auditSink audit.Sink, outbox kafkaoutbox.OutboxRepository, c clock.Clock, logger ...*zap.Logger) Service {
	l := zap.L().Named("identity.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("identity.service")
	}
	return &service{db: db, repo: repo, hasher: hasher, sessions: sessions, audit: auditSink, outbox: outbox, clock: c, logger: l}
}

// dummyHash is verified against when an email is unknown, so a failed
// lookup takes roughly the same wall-clock time as a failed verify.
const dummyHash = "$argon2id$v=19$m=65536,t=2,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func (s *service) CreateUserFromInvite(ctx context.Context, tx *gorm.DB, invite *session.InviteToken, password, firstName, lastName string) (*User, error) {
	if err := passwordhash.ValidatePolicy(password); err != nil {
		return nil, err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		CompanyID:         invite.CompanyID,
		PrimaryFunctionID: invite.FunctionID,
		Email:             invite.Email,
		FirstName:         firstName,
		LastName:          lastName,
		PasswordHash:      hashed,
		Role:              Role(invite.RoleToGrant),
		IsActive:          true,
		EmailVerified:     true,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.CreateUser(ctx, u); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}

	teamIDs, err := unmarshalTeamIDs(invite.TeamIDs)
	if err != nil {
		return nil, apperror.ErrInvalidInput
	}
	joinedAt := s.clock.Now()
	for _, teamID := range teamIDs {
		if err := repo.CreateMembership(ctx, &TeamMembership{UserID: u.ID, TeamID: teamID, JoinedAt: joinedAt}); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// unmarshalTeamIDs decodes the invite's team scope, captured at
// invite-creation time, back into a usable slice.
func unmarshalTeamIDs(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, bool, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_, _ = s.hasher.Verify(dummyHash, password)
			return nil, false, apperror.ErrInvalidCredential
		}
		return nil, false, err
	}

	result, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return nil, false, apperror.ErrInvalidCredential
	}
	if !result.Match {
		return nil, false, apperror.ErrInvalidCredential
	}

	if result.NeedsRehash {
		rehashed, err := s.hasher.Hash(password)
		if err == nil {
			u.PasswordHash = rehashed
			if err := s.repo.UpdateUser(ctx, u); err != nil {
				s.logger.Warn("rehash persist failed", zap.Error(err))
			}
		}
	}

	now := s.clock.Now()
	u.LastLoginAt = &now
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		s.logger.Warn("last_login_at persist failed", zap.Error(err))
	}

	return u, result.NeedsRehash, nil
}

func (s *service) ChangePassword(ctx context.Context, tx *gorm.DB, user *User, currentPassword, newPassword string) error {
	result, err := s.hasher.Verify(user.PasswordHash, currentPassword)
	if err != nil || !result.Match {
		return apperror.ErrInvalidCredential
	}
	if err := passwordhash.ValidatePolicy(newPassword); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.repo.WithTx(tx).UpdateUser(ctx, user); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, tx, user.ID)
}

func (s *service) SetPassword(ctx context.Context, tx *gorm.DB, user *User, newPassword string) error {
	if err := passwordhash.ValidatePolicy(newPassword); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.repo.WithTx(tx).UpdateUser(ctx, user); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, tx, user.ID)
}

func (s *service) SoftDeleteUser(ctx context.Context, tx *gorm.DB, actor *User, targetID uuid.UUID) error {
	if actor.Role != RoleAdmin {
		return apperror.ErrForbidden
	}
	repo := s.repo.WithTx(tx)
	target, err := repo.GetUserByID(ctx, actor.CompanyID, targetID)
	if err != nil {
		return apperror.ErrNotFound
	}
	target.IsActive = false
	if err := repo.UpdateUser(ctx, target); err != nil {
		return err
	}
	if err := repo.DeleteUser(ctx, actor.CompanyID, targetID); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, tx, target.ID)
}

func (s *service) GetByID(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) GetByIDAnyCompany(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByIDAnyCompany(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]User, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListUsers(ctx, companyID, limit, offset)
}

func (s *service) UpdateUser(ctx context.Context, u *User) error {
	return s.repo.UpdateUser(ctx, u)
}

func (s *service) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	co, err := s.repo.GetCompanyByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	return co, nil
}

func (s *service) ListFunctions(ctx context.Context, companyID uuid.UUID) ([]Function, error) {
	return s.repo.ListFunctions(ctx, companyID)
}

func (s *service) ListTeams(ctx context.Context, companyID uuid.UUID) ([]Team, error) {
	return s.repo.ListTeams(ctx, companyID)
}

func (s *service) GetTeam(ctx context.Context, companyID, id uuid.UUID) (*Team, error) {
	t, err := s.repo.GetTeamByID(ctx, companyID, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	return t, nil
}

func (s *service) ActiveTeamIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ActiveTeamIDsForUser(ctx, userID)
}

func (s *service) ManagedTeamIDsForManager(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ManagedTeamIDsForManager(ctx, managerID)
}

func (s *service) ManagedUserIDs(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	teamIDs, err := s.repo.ManagedTeamIDsForManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ActiveMemberUserIDsForTeams(ctx, teamIDs)
}

// --- Org-structure CRUD and membership management ---
//
// Every method below opens and commits its own transaction: unlike the
// user-lifecycle methods above, these aren't invoked from inside an
// authhttp handler that already holds one.

func (s *service) beginTx(ctx context.Context) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

func (s *service) CreateCompany(ctx context.Context, actor *User, name, slug string) (*Company, error) {
	if actor.Role != RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	co := &Company{Name: name, Slug: slug}
	if err := s.repo.WithTx(tx).CreateCompany(ctx, co); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: co.ID, ActorID: &actor.ID, Action: audit.ActionCompanyCreated,
		EntityType: "company", EntityID: &co.ID, After: co,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return co, nil
}

func (s *service) UpdateCompany(ctx context.Context, actor *User, id uuid.UUID, name, slug string) (*Company, error) {
	if actor.Role != RoleAdmin || actor.CompanyID != id {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	co, err := repo.GetCompanyByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	before := *co
	co.Name = name
	co.Slug = slug
	if err := repo.UpdateCompany(ctx, co); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: co.ID, ActorID: &actor.ID, Action: audit.ActionCompanyUpdated,
		EntityType: "company", EntityID: &co.ID, Before: before, After: co,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return co, nil
}

func (s *service) DeleteCompany(ctx context.Context, actor *User, id uuid.UUID) error {
	if actor.Role != RoleAdmin || actor.CompanyID != id {
		return apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	co, err := repo.GetCompanyByID(ctx, id)
	if err != nil {
		return apperror.ErrNotFound
	}
	if err := repo.DeleteCompany(ctx, id); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: id, ActorID: &actor.ID, Action: audit.ActionCompanyDeleted,
		EntityType: "company", EntityID: &id, Before: co,
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *service) CreateFunction(ctx context.Context, actor *User, companyID uuid.UUID, name, code string) (*Function, error) {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	if _, err := repo.GetCompanyByID(ctx, companyID); err != nil {
		return nil, apperror.ErrNotFound
	}
	fn := &Function{CompanyID: companyID, Name: name, Code: code}
	if err := repo.CreateFunction(ctx, fn); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionFunctionCreated,
		EntityType: "function", EntityID: &fn.ID, After: fn,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return fn, nil
}

func (s *service) UpdateFunction(ctx context.Context, actor *User, companyID, id uuid.UUID, name, code string) (*Function, error) {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	fn, err := repo.GetFunctionByID(ctx, companyID, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	before := *fn
	fn.Name = name
	fn.Code = code
	if err := repo.UpdateFunction(ctx, fn); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionFunctionUpdated,
		EntityType: "function", EntityID: &fn.ID, Before: before, After: fn,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return fn, nil
}

func (s *service) DeleteFunction(ctx context.Context, actor *User, companyID, id uuid.UUID) error {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	fn, err := repo.GetFunctionByID(ctx, companyID, id)
	if err != nil {
		return apperror.ErrNotFound
	}
	if err := repo.DeleteFunction(ctx, companyID, id); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionFunctionDeleted,
		EntityType: "function", EntityID: &id, Before: fn,
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *service) CreateTeam(ctx context.Context, actor *User, companyID, functionID uuid.UUID, name, code string) (*Team, error) {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	fn, err := repo.GetFunctionByID(ctx, companyID, functionID)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	t := &Team{CompanyID: companyID, FunctionID: fn.ID, Name: name, Code: code}
	if err := repo.CreateTeam(ctx, t); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionTeamCreated,
		EntityType: "team", EntityID: &t.ID, After: t,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) UpdateTeam(ctx context.Context, actor *User, companyID, id uuid.UUID, name, code string) (*Team, error) {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	t, err := repo.GetTeamByID(ctx, companyID, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	before := *t
	t.Name = name
	t.Code = code
	if err := repo.UpdateTeam(ctx, t); err != nil {
		return nil, apperror.ErrDuplicateUniqueKey
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionTeamUpdated,
		EntityType: "team", EntityID: &t.ID, Before: before, After: t,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) DeleteTeam(ctx context.Context, actor *User, companyID, id uuid.UUID) error {
	if actor.Role != RoleAdmin || actor.CompanyID != companyID {
		return apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	t, err := repo.GetTeamByID(ctx, companyID, id)
	if err != nil {
		return apperror.ErrNotFound
	}
	if err := repo.DeleteTeam(ctx, companyID, id); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: companyID, ActorID: &actor.ID, Action: audit.ActionTeamDeleted,
		EntityType: "team", EntityID: &id, Before: t,
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

// canManageTeam reports whether actor may add/remove members or is
// gated entirely to Admin, for operations Manager may also perform on
// teams within their own managed set.
func (s *service) canManageTeam(ctx context.Context, actor *User, teamID uuid.UUID) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if actor.Role != RoleManager {
		return apperror.ErrForbidden
	}
	managed, err := s.repo.ManagedTeamIDsForManager(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !slices.Contains(managed, teamID) {
		return apperror.ErrForbidden
	}
	return nil
}

func (s *service) AddTeamMember(ctx context.Context, actor *User, teamID, userID uuid.UUID) error {
	if err := s.canManageTeam(ctx, actor, teamID); err != nil {
		return err
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	team, err := repo.GetTeamByID(ctx, actor.CompanyID, teamID)
	if err != nil {
		return apperror.ErrNotFound
	}
	if _, err := repo.GetUserByID(ctx, actor.CompanyID, userID); err != nil {
		return apperror.ErrNotFound
	}
	if _, err := repo.FindActiveMembership(ctx, userID, teamID); err == nil {
		return apperror.ErrDuplicateUniqueKey
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	m := &TeamMembership{UserID: userID, TeamID: teamID, JoinedAt: s.clock.Now()}
	if err := repo.CreateMembership(ctx, m); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: actor.CompanyID, ActorID: &actor.ID, Action: audit.ActionTeamMemberAdded,
		EntityType: "team", EntityID: &team.ID, After: map[string]any{"user_id": userID},
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *service) RemoveTeamMember(ctx context.Context, actor *User, teamID, userID uuid.UUID) error {
	if err := s.canManageTeam(ctx, actor, teamID); err != nil {
		return err
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	m, err := repo.FindActiveMembership(ctx, userID, teamID)
	if err != nil {
		return apperror.ErrNotFound
	}
	if err := repo.EndMembership(ctx, m.ID, s.clock.Now()); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: actor.CompanyID, ActorID: &actor.ID, Action: audit.ActionTeamMemberRemoved,
		EntityType: "team", EntityID: &teamID, Before: map[string]any{"user_id": userID},
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *service) AssignTeamManager(ctx context.Context, actor *User, teamID, userID uuid.UUID) error {
	if actor.Role != RoleAdmin {
		return apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	team, err := repo.GetTeamByID(ctx, actor.CompanyID, teamID)
	if err != nil {
		return apperror.ErrNotFound
	}
	target, err := repo.GetUserByID(ctx, actor.CompanyID, userID)
	if err != nil {
		return apperror.ErrNotFound
	}
	if _, err := repo.FindManagerAssignment(ctx, userID, teamID); err == nil {
		return apperror.ErrDuplicateUniqueKey
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	assignment := &ManagerAssignment{ManagerUserID: userID, TeamID: teamID, AssignedBy: actor.ID, AssignedAt: s.clock.Now()}
	if err := repo.CreateManagerAssignment(ctx, assignment); err != nil {
		return err
	}
	if target.Role == RoleUser {
		target.Role = RoleManager
		if err := repo.UpdateUser(ctx, target); err != nil {
			return err
		}
	}
	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: actor.CompanyID, ActorID: &actor.ID, Action: audit.ActionManagerAssigned,
		EntityType: "team", EntityID: &team.ID, After: map[string]any{"manager_user_id": userID},
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *service) RemoveTeamManager(ctx context.Context, actor *User, teamID, userID uuid.UUID) error {
	if actor.Role != RoleAdmin {
		return apperror.ErrForbidden
	}
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx)
	assignment, err := repo.FindManagerAssignment(ctx, userID, teamID)
	if err != nil {
		return apperror.ErrNotFound
	}
	if err := repo.DeleteManagerAssignment(ctx, assignment.ID); err != nil {
		return err
	}

	remaining, err := repo.CountManagerAssignmentsForUser(ctx, userID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if target, err := repo.GetUserByID(ctx, actor.CompanyID, userID); err == nil && target.Role == RoleManager {
			target.Role = RoleUser
			if err := repo.UpdateUser(ctx, target); err != nil {
				return err
			}
		}
	}

	if err := s.audit.Record(ctx, tx, s.outbox, audit.Record{
		CompanyID: actor.CompanyID, ActorID: &actor.ID, Action: audit.ActionManagerRemoved,
		EntityType: "team", EntityID: &teamID, Before: map[string]any{"manager_user_id": userID},
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}
