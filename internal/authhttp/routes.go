package authhttp

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/middleware"
	"vacationplanner/internal/ratelimit"
)

// RegisterPublicRoutes mounts the endpoints reachable without a valid
// access token: login, refresh, and the password-reset/invite-accept
// flows. Must be mounted on a group NOT behind middleware.AuthMiddleware.
func RegisterPublicRoutes(r *gin.RouterGroup, handler *Handler, gate *ratelimit.Gate) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimitLogin(gate, ratelimit.CategoryLogin), handler.Login)
		auth.POST("/refresh", middleware.RateLimitByIP(gate, ratelimit.CategoryRefresh), handler.Refresh)
		auth.POST("/password/reset/request", middleware.RateLimitByIP(gate, ratelimit.CategoryPasswordResetRequest), handler.RequestPasswordReset)
		auth.POST("/password/reset/confirm", middleware.RateLimitByIP(gate, ratelimit.CategoryPasswordResetConfirm), handler.ConfirmPasswordReset)
		auth.POST("/invite/accept", middleware.RateLimitByIP(gate, ratelimit.CategoryLogin), handler.AcceptInvite)
	}
}

// RegisterAuthenticatedRoutes mounts the endpoints that require a valid
// access token. The caller's group must already sit behind
// middleware.AuthMiddleware(codec).
func RegisterAuthenticatedRoutes(r *gin.RouterGroup, handler *Handler, kernel authz.Kernel, gate *ratelimit.Gate) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", handler.Me)
		auth.POST("/logout", handler.Logout)
		auth.POST("/password/change", middleware.RateLimitByUser(gate, ratelimit.CategoryPasswordResetConfirm), handler.ChangePassword)
	}

	invites := r.Group("/admin/invites")
	{
		invites.POST("", middleware.RBACAuthorize(kernel, authz.ResourceInvite, authz.VerbCreate), handler.CreateInvite)
		invites.GET("", middleware.RBACAuthorize(kernel, authz.ResourceInvite, authz.VerbList), handler.ListInvites)
		invites.DELETE("/:id", middleware.RBACAuthorize(kernel, authz.ResourceInvite, authz.VerbDelete), handler.DeleteInvite)
	}
}
