package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"vacationplanner/internal/ratelimit"
)

// RateLimitByIP and RateLimitByUser gate a route through the shared
// Redis-backed Gate rather than an in-process golang.org/x/time/rate
// limiter, so limits hold across replicas.
func RateLimitByIP(gate *ratelimit.Gate, category ratelimit.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Allow(c.Request.Context(), category, c.ClientIP()); err != nil {
			writeErr(c, err)
			return
		}
		c.Next()
	}
}

// RateLimitLogin keys the login category by IP+email rather than IP
// alone, so one client behind a shared/NATed IP can't exhaust the
// bucket for every email tried against it, and so rotating through
// emails from the same IP doesn't bypass per-account throttling. The
// body is peeked and restored so the handler's own binding still sees
// the full payload.
func RateLimitLogin(gate *ratelimit.Gate, category ratelimit.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			Email string `json:"email"`
		}
		_ = json.Unmarshal(body, &payload)

		key := c.ClientIP() + "|" + strings.ToLower(strings.TrimSpace(payload.Email))
		if err := gate.Allow(c.Request.Context(), category, key); err != nil {
			writeErr(c, err)
			return
		}
		c.Next()
	}
}

func RateLimitByUser(gate *ratelimit.Gate, category ratelimit.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}
		if err := gate.Allow(c.Request.Context(), category, userID); err != nil {
			writeErr(c, err)
			return
		}
		c.Next()
	}
}
