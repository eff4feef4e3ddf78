package export

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/middleware"
	"vacationplanner/internal/ratelimit"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, kernel authz.Kernel, gate *ratelimit.Gate) {
	exports := r.Group("/exports")
	{
		exports.GET("/vacations",
			middleware.RBACAuthorize(kernel, authz.ResourceVacationRequest, authz.VerbList),
			middleware.RateLimitByUser(gate, ratelimit.CategoryExport),
			handler.VacationRequests,
		)
	}
}
