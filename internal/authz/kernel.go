package authz

import (
	"context"

	"github.com/casbin/casbin/v2"
	"github.com/google/uuid"

	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
)

// Principal is resolved once per request: user identity, role, company,
// and the set of teams the principal manages. The HTTP layer builds it
// from the access token's claims: the role is the token's role claim and
// is not re-read from IdentityStore, and ManagedTeamIDs is left empty.
type Principal struct {
	UserID         uuid.UUID
	CompanyID      uuid.UUID
	Role           identity.Role
	ManagedTeamIDs []uuid.UUID
}

func (p Principal) IsAdmin() bool   { return p.Role == identity.RoleAdmin }
func (p Principal) IsManager() bool { return p.Role == identity.RoleManager }

// Scope narrows a query beyond the coarse role/verb decision. Exactly
// one of the fields is meaningful, selected by Kind.
type ScopeKind int

const (
	ScopeAny ScopeKind = iota
	ScopeOwnUser
	ScopeManagedTeamUsers
)

type Scope struct {
	Kind           ScopeKind
	OwnerUserID    uuid.UUID
	ManagedUserIDs []uuid.UUID // resolved membership snapshot for Kind == ScopeManagedTeamUsers
}

//go:generate mockgen -source=kernel.go -destination=mock/kernel_mock.go -package=mock
type Kernel interface {
	// Authorize returns nil when principal may perform verb on resource
	// at all (coarse check); the caller must still intersect Scope
	// with any row it reads or writes.
	Authorize(ctx context.Context, principal Principal, resource, verb string) error

	// ScopeFor computes the row-level restriction for (principal, resource).
	ScopeFor(principal Principal, resource string) Scope

	// CheckTenant verifies entity.company_id == principal.company_id,
	// returning CrossTenantAccess (never Forbidden — see apperror's
	// ErrCrossTenantAccess doc) on mismatch.
	CheckTenant(principal Principal, entityCompanyID uuid.UUID) error
}

type kernel struct {
	enforcer *casbin.Enforcer
}

func NewKernel(enforcer *casbin.Enforcer) Kernel {
	return &kernel{enforcer: enforcer}
}

func (k *kernel) Authorize(_ context.Context, principal Principal, resource, verb string) error {
	allowed, err := k.enforcer.Enforce(string(principal.Role), globalDomain, resource, verb)
	if err != nil {
		return err
	}
	if !allowed {
		return apperror.ErrForbidden
	}
	return nil
}

func (k *kernel) ScopeFor(principal Principal, resource string) Scope {
	if principal.IsAdmin() {
		return Scope{Kind: ScopeAny}
	}

	switch resource {
	case ResourceVacationRequest, ResourceAllocation:
		if principal.IsManager() {
			return Scope{Kind: ScopeManagedTeamUsers}
		}
		return Scope{Kind: ScopeOwnUser, OwnerUserID: principal.UserID}
	case ResourceUser:
		if principal.IsManager() {
			return Scope{Kind: ScopeManagedTeamUsers}
		}
		return Scope{Kind: ScopeOwnUser, OwnerUserID: principal.UserID}
	default:
		// Company/Function/Team/VacationPeriod reads are company-wide
		// for every role once Authorize has already gated the verb.
		return Scope{Kind: ScopeAny}
	}
}

func (k *kernel) CheckTenant(principal Principal, entityCompanyID uuid.UUID) error {
	if principal.CompanyID != entityCompanyID {
		return apperror.ErrCrossTenantAccess
	}
	return nil
}
