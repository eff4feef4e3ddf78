package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=identity_repo.go -destination=mock/identity_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, companyID, id uuid.UUID) error
	GetUserByID(ctx context.Context, companyID, id uuid.UUID) (*User, error)
	GetUserByIDAnyCompany(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]User, int64, error)

	GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error)
	ListFunctions(ctx context.Context, companyID uuid.UUID) ([]Function, error)
	ListTeams(ctx context.Context, companyID uuid.UUID) ([]Team, error)
	GetTeamByID(ctx context.Context, companyID, id uuid.UUID) (*Team, error)

	CreateCompany(ctx context.Context, co *Company) error
	UpdateCompany(ctx context.Context, co *Company) error
	DeleteCompany(ctx context.Context, id uuid.UUID) error

	CreateFunction(ctx context.Context, fn *Function) error
	GetFunctionByID(ctx context.Context, companyID, id uuid.UUID) (*Function, error)
	UpdateFunction(ctx context.Context, fn *Function) error
	DeleteFunction(ctx context.Context, companyID, id uuid.UUID) error

	CreateTeam(ctx context.Context, t *Team) error
	UpdateTeam(ctx context.Context, t *Team) error
	DeleteTeam(ctx context.Context, companyID, id uuid.UUID) error

	CreateMembership(ctx context.Context, m *TeamMembership) error
	FindActiveMembership(ctx context.Context, userID, teamID uuid.UUID) (*TeamMembership, error)
	EndMembership(ctx context.Context, id uuid.UUID, leftAt time.Time) error
	ActiveTeamIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ActiveMemberUserIDsForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]uuid.UUID, error)

	CreateManagerAssignment(ctx context.Context, m *ManagerAssignment) error
	FindManagerAssignment(ctx context.Context, managerID, teamID uuid.UUID) (*ManagerAssignment, error)
	DeleteManagerAssignment(ctx context.Context, id uuid.UUID) error
	CountManagerAssignmentsForUser(ctx context.Context, managerID uuid.UUID) (int64, error)
	ManagedTeamIDsForManager(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
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

func (r *repository) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) UpdateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *repository) DeleteUser(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&User{}, "id = ?", id).Error
}

func (r *repository) GetUserByID(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&u, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByIDAnyCompany is used only by the token/session layer, which
// must resolve a user before it knows the calling company; every other
// caller must use GetUserByID so tenant scoping is enforced structurally.
func (r *repository) GetUserByIDAnyCompany(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).Where("is_active = ?", true).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) ListUsers(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]User, int64, error) {
	var users []User
	var total int64
	q := r.db.WithContext(ctx).Model(&User{}).Where("company_id = ?", companyID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

func (r *repository) GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	var co Company
	err := r.db.WithContext(ctx).First(&co, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (r *repository) ListFunctions(ctx context.Context, companyID uuid.UUID) ([]Function, error) {
	var fns []Function
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name").Find(&fns).Error
	return fns, err
}

func (r *repository) ListTeams(ctx context.Context, companyID uuid.UUID) ([]Team, error) {
	var teams []Team
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name").Find(&teams).Error
	return teams, err
}

func (r *repository) GetTeamByID(ctx context.Context, companyID, id uuid.UUID) (*Team, error) {
	var t Team
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) CreateCompany(ctx context.Context, co *Company) error {
	return r.db.WithContext(ctx).Create(co).Error
}

func (r *repository) UpdateCompany(ctx context.Context, co *Company) error {
	return r.db.WithContext(ctx).Save(co).Error
}

func (r *repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Company{}, "id = ?", id).Error
}

func (r *repository) CreateFunction(ctx context.Context, fn *Function) error {
	return r.db.WithContext(ctx).Create(fn).Error
}

func (r *repository) GetFunctionByID(ctx context.Context, companyID, id uuid.UUID) (*Function, error) {
	var fn Function
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&fn, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &fn, nil
}

func (r *repository) UpdateFunction(ctx context.Context, fn *Function) error {
	return r.db.WithContext(ctx).Save(fn).Error
}

func (r *repository) DeleteFunction(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&Function{}, "id = ?", id).Error
}

func (r *repository) CreateTeam(ctx context.Context, t *Team) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) UpdateTeam(ctx context.Context, t *Team) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *repository) DeleteTeam(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&Team{}, "id = ?", id).Error
}

func (r *repository) CreateMembership(ctx context.Context, m *TeamMembership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindActiveMembership looks up the (user, team) pair among rows that
// have not left, the same existence check add_team_member needs before
// inserting a duplicate.
func (r *repository) FindActiveMembership(ctx context.Context, userID, teamID uuid.UUID) (*TeamMembership, error) {
	var m TeamMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ? AND left_at IS NULL", userID, teamID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EndMembership sets left_at rather than deleting the row, preserving
// the historical record TeamMembership.LeftAt exists for.
func (r *repository) EndMembership(ctx context.Context, id uuid.UUID, leftAt time.Time) error {
	return r.db.WithContext(ctx).Model(&TeamMembership{}).Where("id = ?", id).Update("left_at", leftAt).Error
}

func (r *repository) ActiveTeamIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&TeamMembership{}).
		Where("user_id = ? AND left_at IS NULL", userID).
		Pluck("team_id", &ids).Error
	return ids, err
}

func (r *repository) ActiveMemberUserIDsForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&TeamMembership{}).
		Where("team_id IN ? AND left_at IS NULL", teamIDs).
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repository) CreateManagerAssignment(ctx context.Context, m *ManagerAssignment) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) FindManagerAssignment(ctx context.Context, managerID, teamID uuid.UUID) (*ManagerAssignment, error) {
	var m ManagerAssignment
	err := r.db.WithContext(ctx).
		Where("manager_user_id = ? AND team_id = ?", managerID, teamID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) DeleteManagerAssignment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&ManagerAssignment{}, "id = ?", id).Error
}

// CountManagerAssignmentsForUser backs the demotion check: a manager
// only drops back to RoleUser once they manage zero teams.
func (r *repository) CountManagerAssignmentsForUser(ctx context.Context, managerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ManagerAssignment{}).Where("manager_user_id = ?", managerID).Count(&count).Error
	return count, err
}

func (r *repository) ManagedTeamIDsForManager(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&ManagerAssignment{}).
		Where("manager_user_id = ?", managerID).
		Pluck("team_id", &ids).Error
	return ids, err
}
