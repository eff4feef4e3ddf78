package middleware

import (
	"github.com/gin-gonic/gin"

	"vacationplanner/internal/shared/apperror"
	"vacationplanner/internal/shared/response"
)

func writeErr(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
	c.Abort()
}
