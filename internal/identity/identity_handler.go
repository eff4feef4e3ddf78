package identity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
)

// Handler exposes the IdentityStore over HTTP: read/update for users,
// create/read/update/delete for companies, functions and teams, and
// team member/manager assignment. It does not create or delete users:
// user creation goes through authhttp's invite-accept flow, and
// Service.SoftDeleteUser has no HTTP route.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("identity.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("identity.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("identity request failed", zap.String("path", c.FullPath()), zap.Int("status", httpErr.Status))
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func companyIDFromContext(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.GetString("company_id"))
}

func (h *Handler) ListUsers(c *gin.Context) {
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 {
		pageSize = 50
	}
	users, total, err := h.service.ListUsers(c.Request.Context(), companyID, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, mapUsersToResponse(users), &meta)
}

func (h *Handler) GetUser(c *gin.Context) {
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	u, err := h.service.GetByID(c.Request.Context(), companyID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, MapUserToResponse(u), nil)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	u, err := h.service.GetByID(c.Request.Context(), companyID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.PrimaryFunctionID = req.PrimaryFunctionID
	if err := h.service.UpdateUser(c.Request.Context(), u); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, MapUserToResponse(u), nil)
}

func (h *Handler) GetCompany(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	co, err := h.service.GetCompany(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapCompanyToResponse(co), nil)
}

// companyIDFromPath resolves the :id path param and rejects it outright
// if it doesn't match the caller's own company — nothing in this
// module's RBAC policy grants cross-tenant reads, so a mismatch here is
// always a forbidden request rather than a 404 (avoids leaking which
// company IDs exist).
func companyIDFromPath(c *gin.Context) (uuid.UUID, error) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.ErrNotFound
	}
	contextID, err := companyIDFromContext(c)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	if pathID != contextID {
		return uuid.Nil, apperror.ErrForbidden
	}
	return pathID, nil
}

func (h *Handler) ListFunctions(c *gin.Context) {
	companyID, err := companyIDFromPath(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	funcs, err := h.service.ListFunctions(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, funcs, nil)
}

func (h *Handler) ListTeams(c *gin.Context) {
	companyID, err := companyIDFromPath(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	teams, err := h.service.ListTeams(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams, nil)
}

func (h *Handler) GetTeam(c *gin.Context) {
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	t, err := h.service.GetTeam(c.Request.Context(), companyID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, t, nil)
}

// actorFromContext rebuilds the minimal User the org-structure Service
// methods need to decide Admin/Manager authorization, from the claims
// AuthMiddleware placed on the gin context. Mirrors vacation's
// principalFromContext; identity can't depend on authz.Principal since
// authz already depends on identity.
func actorFromContext(c *gin.Context) (*User, error) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}
	return &User{ID: userID, CompanyID: companyID, Role: Role(c.GetString("role"))}, nil
}

func bindIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.ErrNotFound
	}
	return id, nil
}

func (h *Handler) CreateCompany(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	co, err := h.service.CreateCompany(c.Request.Context(), actor, req.Name, req.Slug)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapCompanyToResponse(co), nil)
}

func (h *Handler) UpdateCompany(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	co, err := h.service.UpdateCompany(c.Request.Context(), actor, id, req.Name, req.Slug)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapCompanyToResponse(co), nil)
}

func (h *Handler) DeleteCompany(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.service.DeleteCompany(c.Request.Context(), actor, id); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateFunction(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromPath(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req CreateFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	fn, err := h.service.CreateFunction(c.Request.Context(), actor, companyID, req.Name, req.Code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapFunctionToResponse(fn), nil)
}

func (h *Handler) UpdateFunction(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req UpdateFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	fn, err := h.service.UpdateFunction(c.Request.Context(), actor, companyID, id, req.Name, req.Code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapFunctionToResponse(fn), nil)
}

func (h *Handler) DeleteFunction(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.service.DeleteFunction(c.Request.Context(), actor, companyID, id); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateTeam(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromPath(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	t, err := h.service.CreateTeam(c.Request.Context(), actor, companyID, req.FunctionID, req.Name, req.Code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapTeamToResponse(t), nil)
}

func (h *Handler) UpdateTeam(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	t, err := h.service.UpdateTeam(c.Request.Context(), actor, companyID, id, req.Name, req.Code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapTeamToResponse(t), nil)
}

func (h *Handler) DeleteTeam(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	companyID, err := companyIDFromContext(c)
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	id, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.service.DeleteTeam(c.Request.Context(), actor, companyID, id); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddTeamMember(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	teamID, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	if err := h.service.AddTeamMember(c.Request.Context(), actor, teamID, req.UserID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveTeamMember(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	teamID, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	userID, err := bindIDParam(c, "user_id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.service.RemoveTeamMember(c.Request.Context(), actor, teamID, userID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AssignTeamManager(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	teamID, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	if err := h.service.AssignTeamManager(c.Request.Context(), actor, teamID, req.UserID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveTeamManager(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	teamID, err := bindIDParam(c, "id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	userID, err := bindIDParam(c, "manager_id")
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.service.RemoveTeamManager(c.Request.Context(), actor, teamID, userID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
