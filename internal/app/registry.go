package app

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/authhttp"
	"vacationplanner/internal/authz"
	"vacationplanner/internal/calendar"
	"vacationplanner/internal/clock"
	"vacationplanner/internal/config"
	"vacationplanner/internal/export"
	"vacationplanner/internal/identity"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/middleware"
	"vacationplanner/internal/ratelimit"
	"vacationplanner/internal/security/passwordhash"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/session"
	"vacationplanner/internal/vacation"
)

// registerModules wires every domain component's repository, service,
// handler, and route group — one repo → service → handler chain per
// component, fanned into a single router.Group("/api/v1").
func registerModules(router *gin.Engine, gormDB *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) error {
	c := clock.NewReal()

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}
	kernel := authz.NewKernel(enforcer)

	hasher := passwordhash.New(cfg.Hash)
	codec := tokencodec.New(cfg.SigningKey, c)
	gate := ratelimit.New(rdb, c, cfg.RateLimits, logger)
	outboxRepo := kafkaoutbox.NewOutboxRepository(gormDB)

	// --- Repositories ---
	identityRepo := identity.NewRepository(gormDB)
	sessionRepo := session.NewRepository(gormDB)
	calendarRepo := calendar.NewRepository(gormDB)
	vacationRepo := vacation.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)

	// --- Services ---
	sessionService := session.NewService(sessionRepo, c)
	auditSink := audit.NewSink(auditRepo, c)
	identityService := identity.NewService(gormDB, identityRepo, hasher, sessionService, auditSink, outboxRepo, c)
	calendarService := calendar.NewService(calendarRepo)
	vacationService := vacation.NewService(gormDB, vacationRepo, calendarService, kernel, identityService, auditSink, outboxRepo, c)
	exportService := export.NewService(vacationRepo, identityService, kernel)

	// --- Handlers ---
	identityHandler := identity.NewHandler(identityService)
	vacationHandler := vacation.NewHandler(vacationService)
	auditHandler := audit.NewHandler(auditSink)
	exportHandler := export.NewHandler(exportService)
	authHandler := authhttp.NewHandler(gormDB, identityService, sessionService, codec, gate, auditSink, outboxRepo, authhttp.Config{
		AccessTokenTTL:        cfg.AccessTokenTTL,
		RefreshTokenTTL:       cfg.RefreshTokenTTL,
		RememberMeRefreshTTL:  cfg.RememberMeRefreshTTL,
		InviteTokenTTL:        cfg.InviteTokenTTL,
		PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
		SecureCookies:         cfg.DBSSLMode != "disable",
	})

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	api.Use(middleware.RequestID(), middleware.SecurityHeaders(), middleware.CSRF(cfg.CORSOrigins))

	authhttp.RegisterPublicRoutes(api, authHandler, gate)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(codec), middleware.ContextLogger(logger))
	{
		authhttp.RegisterAuthenticatedRoutes(protected, authHandler, kernel, gate)
		identity.RegisterRoutes(protected, identityHandler, kernel)
		vacation.RegisterRoutes(protected, vacationHandler, kernel)
		audit.RegisterRoutes(protected, auditHandler, kernel)
		export.RegisterRoutes(protected, exportHandler, kernel, gate)
	}

	return nil
}
