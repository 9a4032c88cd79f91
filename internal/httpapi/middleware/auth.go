package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fkoehle/habit-coach/internal/auth"
	"github.com/fkoehle/habit-coach/internal/common"
)

const (
	UserIDKey = "auth.user_id"
	ClaimsKey = "auth.claims"
)

// TokenDenylist reports whether a token id has been revoked by logout.
type TokenDenylist interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthRequired validates the Bearer token and rejects revoked ones. On
// success the user id and claims are stored in the request context.
func AuthRequired(secret string, denylist TokenDenylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := auth.ParseJWT(strings.TrimPrefix(header, prefix), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid or expired token")
			c.Abort()
			return
		}

		if denylist != nil {
			revoked, err := denylist.IsTokenRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				common.Fail(c, http.StatusInternalServerError, 50003, "auth backend unavailable")
				c.Abort()
				return
			}
			if revoked {
				common.Fail(c, http.StatusUnauthorized, 40103, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
