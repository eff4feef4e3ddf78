package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is an audit trail row: actor, action, target, before/after
// snapshots. Immutable once written — no Update, no Delete in
// Repository.
type Event struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_company_created"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index:idx_audit_actor"`
	Action     string    `gorm:"type:varchar(60);not null;index:idx_audit_action"`
	EntityType string    `gorm:"type:varchar(60);not null;index:idx_audit_entity"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index:idx_audit_entity"`
	Before     []byte    `gorm:"type:jsonb"`
	After      []byte    `gorm:"type:jsonb"`
	IP         string    `gorm:"type:varchar(64)"`
	UserAgent  string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index:idx_audit_company_created"`
}

// Action codes for every lifecycle event that must be audited.
const (
	ActionLoginSuccess      = "login.success"
	ActionLoginFailure      = "login.failure"
	ActionLoginLocked       = "login.locked"
	ActionLogout            = "logout"
	ActionPasswordChanged   = "password.changed"
	ActionPasswordReset     = "password.reset"
	ActionRoleChanged       = "role.changed"
	ActionCrossTenantDenied = "authz.cross_tenant_denied"
	ActionAuthzDenied       = "authz.denied"
	ActionUserInvited       = "user.invited"
	ActionUserCreated       = "user.created"
	ActionUserDeleted       = "user.deleted"
	ActionRequestCreated    = "vacation_request.created"
	ActionRequestApproved   = "vacation_request.approved"
	ActionRequestRejected   = "vacation_request.rejected"
	ActionRequestCancelled  = "vacation_request.cancelled"
	ActionRequestWithdrawn  = "vacation_request.withdrawn"
	ActionRequestModified   = "vacation_request.modified"
	ActionCompanyCreated    = "company.created"
	ActionCompanyUpdated    = "company.updated"
	ActionCompanyDeleted    = "company.deleted"
	ActionFunctionCreated   = "function.created"
	ActionFunctionUpdated   = "function.updated"
	ActionFunctionDeleted   = "function.deleted"
	ActionTeamCreated       = "team.created"
	ActionTeamUpdated       = "team.updated"
	ActionTeamDeleted       = "team.deleted"
	ActionTeamMemberAdded   = "team.member_added"
	ActionTeamMemberRemoved = "team.member_removed"
	ActionManagerAssigned   = "team.manager_assigned"
	ActionManagerRemoved    = "team.manager_removed"
)
