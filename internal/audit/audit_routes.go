package audit

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/middleware"
)

// RegisterRoutes mounts the audit trail read surface. The caller's
// group is expected to already sit behind middleware.AuthMiddleware;
// RBAC restricts both routes to admins (see enforcer.go's staticMatrix).
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, kernel authz.Kernel) {
	events := r.Group("/audit-events")
	{
		events.GET("", middleware.RBACAuthorize(kernel, authz.ResourceAuditEvent, authz.VerbList), handler.List)
		events.GET("/:id", middleware.RBACAuthorize(kernel, authz.ResourceAuditEvent, authz.VerbRead), handler.Get)
	}
}
