package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/shared/apperror"
)

// AuthMiddleware verifies the bearer access token and seeds the gin
// context with the claims downstream handlers rebuild a Principal
// from. Falls back to an access_token cookie for browser clients.
// Generalized from a raw jwt.Parse+os.Getenv version to the injected
// TokenCodec so signing key and clock are never read from process
// globals.
func AuthMiddleware(codec *tokencodec.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			writeErr(c, apperror.ErrUnauthorized)
			return
		}

		claims, err := codec.VerifyAccessToken(tokenString)
		if err != nil {
			writeErr(c, err)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("company_id", claims.CompanyID)
		c.Set("role", claims.RoleHint)
		c.Next()
	}
}
