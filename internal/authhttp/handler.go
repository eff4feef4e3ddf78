package authhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/datatypes"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/events"
	"vacationplanner/internal/identity"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/ratelimit"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/session"
	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
)

// marshalTeamIDs encodes the invite's team scope for storage in the
// InviteToken's JSON column; a nil/empty slice marshals to "[]" rather
// than "null" so session.Repository never has to special-case it.
func marshalTeamIDs(ids []uuid.UUID) datatypes.JSON {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	raw, _ := json.Marshal(ids)
	return datatypes.JSON(raw)
}

// publishUserCreated drives the allocation-provisioning consumer
// (internal/messaging/kafka/consumer) the same way an employee-created
// event elsewhere drives default-salary provisioning.
func publishUserCreated(ctx context.Context, tx *gorm.DB, outbox kafkaoutbox.OutboxRepository, user *identity.User) error {
	payload, err := json.Marshal(events.UserCreatedEvent{
		EventType: events.UserCreatedTopic,
		UserID:    user.ID.String(),
		CompanyID: user.CompanyID.String(),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return outbox.WithTx(tx).Create(ctx, kafkaoutbox.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: "user",
		AggregateID:   user.ID.String(),
		EventType:     events.UserCreatedTopic,
		Topic:         events.UserCreatedTopic,
		Payload:       payload,
		Status:        kafkaoutbox.OutboxStatusPending,
	})
}

// Config carries the token/cookie lifetimes config.Config resolves at
// startup, so this package doesn't read the environment itself.
type Config struct {
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	RememberMeRefreshTTL  time.Duration
	InviteTokenTTL        time.Duration
	PasswordResetTokenTTL time.Duration
	SecureCookies         bool
}

const refreshCookieName = "refresh_token"

type Handler struct {
	identity identity.Service
	sessions session.Service
	tokens   *tokencodec.Codec
	gate     *ratelimit.Gate
	audit    audit.Sink
	outbox   kafkaoutbox.OutboxRepository
	db       *gorm.DB
	cfg      Config
	logger   *zap.Logger
}

func NewHandler(
	db *gorm.DB,
	identitySvc identity.Service,
	sessionSvc session.Service,
	tokens *tokencodec.Codec,
	gate *ratelimit.Gate,
	auditSink audit.Sink,
	outbox kafkaoutbox.OutboxRepository,
	cfg Config,
	logger ...*zap.Logger,
) *Handler {
	l := zap.L().Named("authhttp.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("authhttp.handler")
	}
	return &Handler{
		db: db, identity: identitySvc, sessions: sessionSvc, tokens: tokens,
		gate: gate, audit: auditSink, outbox: outbox, cfg: cfg, logger: l,
	}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("auth request failed", zap.String("path", c.FullPath()), zap.Int("status", httpErr.Status))
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) setRefreshCookie(c *gin.Context, raw string, ttl time.Duration) {
	c.SetCookie(refreshCookieName, raw, int(ttl.Seconds()), "/api/v1/auth", "", h.cfg.SecureCookies, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, "/api/v1/auth", "", h.cfg.SecureCookies, true)
}

func clientIP(c *gin.Context) string { return c.ClientIP() }

// Login authenticates by (email, password), gated by the login RateGate
// category at the route and by the lockout latch here: CheckLockout
// runs before Authenticate so a latched account never pays
// the hashing cost, and RecordFailure/ClearFailures track consecutive
// attempts independent of the IP+email-keyed RateGate bucket.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	ctx := c.Request.Context()

	if err := h.gate.CheckLockout(ctx, req.Email); err != nil {
		h.writeServiceError(c, err)
		return
	}

	user, _, err := h.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		_ = h.gate.RecordFailure(ctx, req.Email)
		h.writeServiceError(c, err)
		return
	}
	_ = h.gate.ClearFailures(ctx, req.Email)

	ttl := h.cfg.RefreshTokenTTL
	if req.RememberMe {
		ttl = h.cfg.RememberMeRefreshTTL
	}

	var rawRefresh, rawAccess string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		rawRefresh, err = h.sessions.IssueRefreshToken(ctx, tx, user.ID, ttl, req.RememberMe, clientIP(c), c.GetHeader("User-Agent"))
		if err != nil {
			return err
		}
		rawAccess, _, err = h.tokens.IssueAccessToken(user.ID.String(), user.CompanyID.String(), string(user.Role), h.cfg.AccessTokenTTL)
		if err != nil {
			return err
		}
		actorID := user.ID
		return h.audit.Record(ctx, tx, h.outbox, audit.Record{
			CompanyID: user.CompanyID, ActorID: &actorID, Action: audit.ActionLoginSuccess,
			EntityType: "user", EntityID: &actorID, IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
		})
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, rawRefresh, ttl)
	response.Success(c, http.StatusOK, gin.H{
		"user":         identity.MapUserToResponse(user),
		"access_token": rawAccess,
		"expires_in":   int(h.cfg.AccessTokenTTL.Seconds()),
	}, nil)
}

// Refresh rotates the presented refresh token: a replayed
// (already-revoked) token revokes every refresh token the user
// holds and fails the request, rather than silently issuing a new one.
func (h *Handler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	rawRefresh, err := c.Cookie(refreshCookieName)
	if err != nil || rawRefresh == "" {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	var newRaw string
	var user *identity.User
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var userID uuid.UUID
		var err error
		newRaw, userID, err = h.sessions.RotateRefreshToken(ctx, tx, rawRefresh, h.cfg.RefreshTokenTTL, clientIP(c), c.GetHeader("User-Agent"))
		if err != nil {
			if errors.Is(err, apperror.ErrRefreshReplayDetected) {
				h.clearRefreshCookie(c)
			}
			return err
		}
		user, err = h.identity.GetByIDAnyCompany(ctx, userID)
		return err
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	rawAccess, _, err := h.tokens.IssueAccessToken(user.ID.String(), user.CompanyID.String(), string(user.Role), h.cfg.AccessTokenTTL)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, newRaw, h.cfg.RefreshTokenTTL)
	response.Success(c, http.StatusOK, gin.H{
		"access_token": rawAccess,
		"expires_in":   int(h.cfg.AccessTokenTTL.Seconds()),
	}, nil)
}

func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	rawRefresh, _ := c.Cookie(refreshCookieName)
	if rawRefresh != "" {
		_ = h.db.Transaction(func(tx *gorm.DB) error {
			return h.sessions.RevokeRefreshToken(ctx, tx, rawRefresh)
		})
	}
	h.clearRefreshCookie(c)
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"}, nil)
}

func (h *Handler) Me(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	user, err := h.identity.GetByID(c.Request.Context(), companyID, userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, identity.MapUserToResponse(user), nil)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.identity.GetByID(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if err := h.identity.ChangePassword(ctx, tx, user, req.CurrentPassword, req.NewPassword); err != nil {
			return err
		}
		return h.audit.Record(ctx, tx, h.outbox, audit.Record{
			CompanyID: companyID, ActorID: &userID, Action: audit.ActionPasswordChanged,
			EntityType: "user", EntityID: &userID, IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
		})
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password changed"}, nil)
}

// RequestPasswordReset always responds with 200 regardless of whether
// the email exists, so the endpoint cannot be used to enumerate
// accounts.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	ctx := c.Request.Context()
	var req RequestPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}

	if user, err := h.identity.GetByEmail(ctx, req.Email); err == nil {
		_ = h.db.Transaction(func(tx *gorm.DB) error {
			if _, err := h.sessions.IssuePasswordReset(ctx, tx, user.ID, h.cfg.PasswordResetTokenTTL); err != nil {
				return err
			}
			return h.audit.Record(ctx, tx, h.outbox, audit.Record{
				CompanyID: user.CompanyID, ActorID: &user.ID, Action: audit.ActionPasswordReset,
				EntityType: "user", EntityID: &user.ID, IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
			})
		})
	}
	response.Success(c, http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"}, nil)
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	ctx := c.Request.Context()
	var req ConfirmPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		reset, err := h.sessions.ConsumePasswordReset(ctx, tx, req.Token)
		if err != nil {
			return err
		}
		user, err := h.identity.GetByIDAnyCompany(ctx, reset.UserID)
		if err != nil {
			return err
		}
		if err := h.identity.SetPassword(ctx, tx, user, req.NewPassword); err != nil {
			return err
		}
		return h.audit.Record(ctx, tx, h.outbox, audit.Record{
			CompanyID: user.CompanyID, ActorID: &user.ID, Action: audit.ActionPasswordReset,
			EntityType: "user", EntityID: &user.ID, IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
		})
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password reset"}, nil)
}

func (h *Handler) CreateInvite(c *gin.Context) {
	ctx := c.Request.Context()
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	invitedBy, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}

	var rawToken string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		rawToken, err = h.sessions.IssueInvite(ctx, tx, companyID, req.FunctionID, marshalTeamIDs(req.TeamIDs), req.Email, req.Role, invitedBy, h.cfg.InviteTokenTTL)
		if err != nil {
			return err
		}
		return h.audit.Record(ctx, tx, h.outbox, audit.Record{
			CompanyID: companyID, ActorID: &invitedBy, Action: audit.ActionUserInvited,
			EntityType: "invite", IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
			After: map[string]string{"email": req.Email, "role": req.Role},
		})
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"token": rawToken}, nil)
}

func (h *Handler) ListInvites(c *gin.Context) {
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	invites, err := h.sessions.ListInvites(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	out := make([]inviteResponse, len(invites))
	for i, inv := range invites {
		out[i] = inviteResponse{ID: inv.ID, Email: inv.Email, RoleToGrant: inv.RoleToGrant}
	}
	response.Success(c, http.StatusOK, out, nil)
}

func (h *Handler) DeleteInvite(c *gin.Context) {
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	if err := h.sessions.DeleteInvite(c.Request.Context(), companyID, id); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "invite deleted"}, nil)
}

// AcceptInvite consumes the invite and creates the user in one
// transaction: consume-and-create is atomic.
func (h *Handler) AcceptInvite(c *gin.Context) {
	ctx := c.Request.Context()
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}

	var user *identity.User
	err := h.db.Transaction(func(tx *gorm.DB) error {
		invite, err := h.sessions.ConsumeInvite(ctx, tx, req.Token)
		if err != nil {
			return err
		}
		user, err = h.identity.CreateUserFromInvite(ctx, tx, invite, req.Password, req.FirstName, req.LastName)
		if err != nil {
			return err
		}
		if err := h.audit.Record(ctx, tx, h.outbox, audit.Record{
			CompanyID: user.CompanyID, ActorID: &user.ID, Action: audit.ActionUserCreated,
			EntityType: "user", EntityID: &user.ID, IP: clientIP(c), UserAgent: c.GetHeader("User-Agent"),
		}); err != nil {
			return err
		}
		return publishUserCreated(ctx, tx, h.outbox, user)
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, identity.MapUserToResponse(user), nil)
}
