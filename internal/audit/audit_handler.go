package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
)

// Handler exposes read-only access to the audit trail: list with
// filters, and fetch a single event by id. There is no write endpoint —
// events only ever arrive through Sink.Record inside a domain
// transaction.
type Handler struct {
	sink   Sink
	logger *zap.Logger
}

func NewHandler(sink Sink, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("audit.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.handler")
	}
	return &Handler{sink: sink, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("audit request failed", zap.String("path", c.FullPath()), zap.Int("status", httpErr.Status))
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func parseTimeQuery(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) List(c *gin.Context) {
	companyID, err := uuid.Parse(c.GetString("company_id"))
	if err != nil {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	f := Filter{
		CompanyID:  companyID,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		From:       parseTimeQuery(c, "from"),
		To:         parseTimeQuery(c, "to"),
	}
	if raw := c.Query("actor_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.ActorID = &id
		}
	}
	if raw := c.Query("entity_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.EntityID = &id
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 {
		pageSize = 50
	}

	events, err := h.sink.Query(c.Request.Context(), f, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, events, nil)
}

func (h *Handler) Get(c *gin.Context) {
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
	event, err := h.sink.FindByID(c.Request.Context(), companyID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, event, nil)
}
