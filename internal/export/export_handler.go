package export

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
	"vacationplanner/internal/vacation"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("export.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("export.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("export failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// VacationRequests handles GET /exports/vacations?format=csv|xlsx,
// streaming the response body rather than buffering an envelope — an
// export is a file download, not an ApiEnvelope payload.
func (h *Handler) VacationRequests(c *gin.Context) {
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
	principal := authz.Principal{UserID: userID, CompanyID: companyID, Role: identity.Role(c.GetString("role"))}

	format := Format(c.DefaultQuery("format", "csv"))
	if format != FormatCSV && format != FormatXLSX {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or xlsx", nil)
		return
	}

	var filter Filter
	filter.Status = vacation.Status(c.Query("status"))
	if raw := c.Query("team_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid team_id", nil)
			return
		}
		filter.TeamID = &id
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user_id", nil)
			return
		}
		filter.UserID = &id
	}
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid start_date", nil)
			return
		}
		filter.From = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid end_date", nil)
			return
		}
		filter.To = &t
	}

	filename := "vacations." + string(format)
	switch format {
	case FormatXLSX:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		c.Header("Content-Type", "text/csv")
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if err := h.service.Stream(c.Request.Context(), principal, filter, format, c.Writer); err != nil {
		h.writeServiceError(c, err)
		return
	}
}
