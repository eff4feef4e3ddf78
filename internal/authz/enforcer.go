// Package authz implements the permission matrix plus the scope
// predicates every query must be ANDed against, on top of a Casbin
// enforcer whose (role, domain, resource, verb) policy rows are matched
// directly, with no role-grouping rows, and seeded once at startup from
// a single static matrix. The matrix does not vary per tenant, so the per-company
// "domain" collapses to one constant domain, kept only because the
// rest of the matcher stays domain-aware for a future per-company
// override.
package authz

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"vacationplanner/internal/identity"
)

//go:embed model.conf
var modelText string

const globalDomain = "global"

// Verb names used in policy rows. Routes and services pass these to
// Kernel.Authorize, which hands them to Enforce unchanged.
const (
	VerbList    = "list"
	VerbRead    = "read"
	VerbCreate  = "create"
	VerbUpdate  = "update"
	VerbDelete  = "delete"
	VerbApprove = "approve"
	VerbReject  = "reject"
	VerbCancel  = "cancel"
)

// Resource names used in policy rows.
const (
	ResourceUser            = "user"
	ResourceCompany         = "company"
	ResourceFunction        = "function"
	ResourceTeam            = "team"
	ResourceVacationRequest = "vacation_request"
	ResourceVacationPeriod  = "vacation_period"
	ResourceAllocation      = "allocation"
	ResourceAuditEvent      = "audit_event"
	ResourceInvite          = "invite"
)

// NewEnforcer builds a Casbin enforcer from the embedded model and
// seeds it with the static role → (resource, verb) matrix. It never
// reads policy from a database, because this matrix is process-wide
// and fixed.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicy(e); err != nil {
		return nil, err
	}
	return e, nil
}

type roleGrant struct {
	role     identity.Role
	resource string
	verbs    []string
}

// staticMatrix is the coarse role → (resource, verb) allow set. Row-level
// narrowing (own/managed-team/any) is NOT expressed here — that is
// Kernel.ScopeFor's job, evaluated in Go after Casbin says the verb is
// permitted for the role at all.
var staticMatrix = []roleGrant{
	{identity.RoleAdmin, ResourceUser, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceUser, []string{VerbRead, VerbUpdate}},
	{identity.RoleUser, ResourceUser, []string{VerbRead, VerbUpdate}},

	{identity.RoleAdmin, ResourceCompany, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceCompany, []string{VerbRead}},
	{identity.RoleUser, ResourceCompany, []string{VerbRead}},

	{identity.RoleAdmin, ResourceFunction, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceFunction, []string{VerbRead}},
	{identity.RoleUser, ResourceFunction, []string{VerbRead}},

	{identity.RoleAdmin, ResourceTeam, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceTeam, []string{VerbRead, VerbUpdate}},
	{identity.RoleUser, ResourceTeam, []string{VerbRead}},

	{identity.RoleAdmin, ResourceVacationRequest, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete, VerbApprove, VerbReject, VerbCancel}},
	{identity.RoleManager, ResourceVacationRequest, []string{VerbList, VerbRead, VerbApprove, VerbReject}},
	{identity.RoleUser, ResourceVacationRequest, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbCancel}},

	{identity.RoleAdmin, ResourceVacationPeriod, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceVacationPeriod, []string{VerbList, VerbRead}},
	{identity.RoleUser, ResourceVacationPeriod, []string{VerbList, VerbRead}},

	{identity.RoleAdmin, ResourceAllocation, []string{VerbList, VerbRead, VerbCreate, VerbUpdate, VerbDelete}},
	{identity.RoleManager, ResourceAllocation, []string{VerbList, VerbRead}},
	{identity.RoleUser, ResourceAllocation, []string{VerbList, VerbRead}},

	{identity.RoleAdmin, ResourceAuditEvent, []string{VerbList, VerbRead}},

	{identity.RoleAdmin, ResourceInvite, []string{VerbCreate, VerbList, VerbDelete}},
}

func seedPolicy(e *casbin.Enforcer) error {
	for _, grant := range staticMatrix {
		for _, verb := range grant.verbs {
			if _, err := e.AddPolicy(string(grant.role), globalDomain, grant.resource, verb); err != nil {
				return err
			}
		}
	}
	return nil
}
