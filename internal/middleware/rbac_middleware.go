package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
)

// RBACAuthorize gates a route on AuthzKernel's coarse role/resource/verb
// decision. Row-level scoping (own vs managed-team vs any) still
// belongs to the handler's service call via Kernel.ScopeFor — this
// middleware only rejects requests that could never be allowed.
// Generalized from a Casbin-domains-per-company RBACService.Enforce
// call to a single process-wide authz.Kernel.Authorize.
func RBACAuthorize(kernel authz.Kernel, resource, verb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetString("user_id"))
		if err != nil {
			writeErr(c, apperror.ErrUnauthorized)
			return
		}
		companyID, err := uuid.Parse(c.GetString("company_id"))
		if err != nil {
			writeErr(c, apperror.ErrUnauthorized)
			return
		}
		principal := authz.Principal{
			UserID:    userID,
			CompanyID: companyID,
			Role:      identity.Role(c.GetString("role")),
		}

		if err := kernel.Authorize(c.Request.Context(), principal, resource, verb); err != nil {
			writeErr(c, err)
			return
		}
		c.Next()
	}
}
