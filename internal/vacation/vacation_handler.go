package vacation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("vacation.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("vacation.handler")
	}
	return &Handler{service: service, logger: l}
}

// principalFromContext rebuilds the AuthzKernel's Principal from the
// claims AuthMiddleware placed on the gin context. Role is re-read
// from context rather than trusted as authoritative business state;
// callers that need the freshest role still go through
// identity.Service.GetByID.
func principalFromContext(c *gin.Context) (authz.Principal, error) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return authz.Principal{}, apperror.ErrUnauthorized
	}
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		return authz.Principal{}, apperror.ErrUnauthorized
	}
	role := identity.Role(c.GetString("role"))
	return authz.Principal{UserID: userID, CompanyID: companyID, Role: role}, nil
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("vacation request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	resp, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Submit(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), principal, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Modify(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	var req ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	resp, err := h.service.Modify(c.Request.Context(), principal, id, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Approve(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	var req ApproveRequest
	_ = c.ShouldBindJSON(&req)
	resp, err := h.service.Approve(c.Request.Context(), principal, id, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Reject(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "input is invalid", err.Error())
		return
	}
	resp, err := h.service.Reject(c.Request.Context(), principal, id, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Cancel(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	resp, err := h.service.Cancel(c.Request.Context(), principal, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Withdraw(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	resp, err := h.service.Withdraw(c.Request.Context(), principal, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Get(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	resp, err := h.service.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) List(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	status := Status(c.Query("status"))
	var teamID *uuid.UUID
	if raw := c.Query("team_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid team_id", nil)
			return
		}
		teamID = &id
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	items, total, err := h.service.List(c.Request.Context(), principal, status, teamID, pageSize, offset)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, items, &meta)
}

func (h *Handler) Balance(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	at := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid date", nil)
			return
		}
		at = parsed
	}
	resp, err := h.service.Balance(c.Request.Context(), principal, at)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
