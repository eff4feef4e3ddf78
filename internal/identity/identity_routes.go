package identity

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/middleware"
)

// RegisterRoutes mounts the identity Handler's routes. The
// caller's group is expected to already sit behind middleware.AuthMiddleware.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, kernel authz.Kernel) {
	users := r.Group("/users")
	{
		users.GET("", middleware.RBACAuthorize(kernel, authz.ResourceUser, authz.VerbList), handler.ListUsers)
		users.GET("/:id", middleware.RBACAuthorize(kernel, authz.ResourceUser, authz.VerbRead), handler.GetUser)
		users.PUT("/:id", middleware.RBACAuthorize(kernel, authz.ResourceUser, authz.VerbUpdate), handler.UpdateUser)
	}

	companies := r.Group("/companies")
	{
		companies.POST("", middleware.RBACAuthorize(kernel, authz.ResourceCompany, authz.VerbCreate), handler.CreateCompany)
		companies.GET("/:id", middleware.RBACAuthorize(kernel, authz.ResourceCompany, authz.VerbRead), handler.GetCompany)
		companies.PUT("/:id", middleware.RBACAuthorize(kernel, authz.ResourceCompany, authz.VerbUpdate), handler.UpdateCompany)
		companies.DELETE("/:id", middleware.RBACAuthorize(kernel, authz.ResourceCompany, authz.VerbDelete), handler.DeleteCompany)
		companies.GET("/:id/functions", middleware.RBACAuthorize(kernel, authz.ResourceFunction, authz.VerbList), handler.ListFunctions)
		companies.POST("/:id/functions", middleware.RBACAuthorize(kernel, authz.ResourceFunction, authz.VerbCreate), handler.CreateFunction)
		companies.GET("/:id/teams", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbList), handler.ListTeams)
		companies.POST("/:id/teams", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbCreate), handler.CreateTeam)
	}

	functions := r.Group("/functions")
	{
		functions.PUT("/:id", middleware.RBACAuthorize(kernel, authz.ResourceFunction, authz.VerbUpdate), handler.UpdateFunction)
		functions.DELETE("/:id", middleware.RBACAuthorize(kernel, authz.ResourceFunction, authz.VerbDelete), handler.DeleteFunction)
	}

	teams := r.Group("/teams")
	{
		teams.GET("/:id", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbRead), handler.GetTeam)
		teams.PUT("/:id", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbUpdate), handler.UpdateTeam)
		teams.DELETE("/:id", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbDelete), handler.DeleteTeam)
		teams.POST("/:id/members", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbUpdate), handler.AddTeamMember)
		teams.DELETE("/:id/members/:user_id", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbUpdate), handler.RemoveTeamMember)
		teams.POST("/:id/managers", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbUpdate), handler.AssignTeamManager)
		teams.DELETE("/:id/managers/:manager_id", middleware.RBACAuthorize(kernel, authz.ResourceTeam, authz.VerbUpdate), handler.RemoveTeamManager)
	}
}
