package vacation

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/middleware"
)

// RegisterRoutes mounts the vacation request endpoints under r, which
// the caller is expected to already have behind middleware.AuthMiddleware
// (this module only adds RBAC, not authentication).
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, kernel authz.Kernel) {
	requests := r.Group("/vacations")
	{
		requests.GET("", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbList), handler.List)
		requests.GET("/balance", middleware.RBACAuthorize(kernel, authz.ResourceAllocation, authz.VerbRead), handler.Balance)
		requests.GET("/:id", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbRead), handler.Get)
		requests.POST("", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbCreate), handler.Create)
		requests.PUT("/:id", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbUpdate), handler.Modify)
		requests.POST("/:id/submit", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbUpdate), handler.Submit)
		requests.POST("/:id/approve", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbApprove), handler.Approve)
		requests.POST("/:id/reject", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbReject), handler.Reject)
		requests.POST("/:id/cancel", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbCancel), handler.Cancel)
		requests.POST("/:id/withdraw", middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbCancel), handler.Withdraw)
	}
}
