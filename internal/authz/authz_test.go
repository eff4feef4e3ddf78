package authz_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
)

func newKernel(t *testing.T) authz.Kernel {
	t.Helper()
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	return authz.NewKernel(enforcer)
}

func TestKernel_Authorize(t *testing.T) {
	k := newKernel(t)
	ctx := context.Background()

	t.Run("admin can delete a user", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleAdmin}
		assert.NoError(t, k.Authorize(ctx, p, authz.ResourceUser, authz.VerbDelete))
	})

	t.Run("plain user cannot delete a user", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleUser}
		err := k.Authorize(ctx, p, authz.ResourceUser, authz.VerbDelete)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("manager can approve a vacation request", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleManager}
		assert.NoError(t, k.Authorize(ctx, p, authz.ResourceVacationRequest, authz.VerbApprove))
	})

	t.Run("plain user cannot approve a vacation request", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleUser}
		err := k.Authorize(ctx, p, authz.ResourceVacationRequest, authz.VerbApprove)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("only admin can touch audit events", func(t *testing.T) {
		admin := authz.Principal{Role: identity.RoleAdmin}
		manager := authz.Principal{Role: identity.RoleManager}
		assert.NoError(t, k.Authorize(ctx, admin, authz.ResourceAuditEvent, authz.VerbList))
		assert.ErrorIs(t, k.Authorize(ctx, manager, authz.ResourceAuditEvent, authz.VerbList), apperror.ErrForbidden)
	})
}

func TestKernel_ScopeFor(t *testing.T) {
	k := newKernel(t)
	userID := uuid.New()

	t.Run("admin gets ScopeAny", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleAdmin, UserID: userID}
		scope := k.ScopeFor(p, authz.ResourceVacationRequest)
		assert.Equal(t, authz.ScopeAny, scope.Kind)
	})

	t.Run("manager gets ScopeManagedTeamUsers", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleManager, UserID: userID}
		scope := k.ScopeFor(p, authz.ResourceVacationRequest)
		assert.Equal(t, authz.ScopeManagedTeamUsers, scope.Kind)
	})

	t.Run("plain user gets ScopeOwnUser", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleUser, UserID: userID}
		scope := k.ScopeFor(p, authz.ResourceVacationRequest)
		assert.Equal(t, authz.ScopeOwnUser, scope.Kind)
		assert.Equal(t, userID, scope.OwnerUserID)
	})

	t.Run("company-wide resource is ScopeAny regardless of role", func(t *testing.T) {
		p := authz.Principal{Role: identity.RoleUser, UserID: userID}
		scope := k.ScopeFor(p, authz.ResourceTeam)
		assert.Equal(t, authz.ScopeAny, scope.Kind)
	})
}

func TestKernel_CheckTenant(t *testing.T) {
	k := newKernel(t)
	companyID := uuid.New()
	p := authz.Principal{CompanyID: companyID}

	assert.NoError(t, k.CheckTenant(p, companyID))

	err := k.CheckTenant(p, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrCrossTenantAccess)
}
