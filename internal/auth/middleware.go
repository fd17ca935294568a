package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rommeltorquator/project-management-app/internal/observability"
)

// Middleware returns a gin handler that authenticates every request on
// the group it is attached to. It extracts the bearer token, verifies it
// and attaches the resulting Identity to the request context before any
// handler runs. Requests without a valid identity never reach a handler.
func Middleware(tokens *TokenService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		parts := strings.Split(header, " ")
		if header == "" || len(parts) != 2 || parts[0] != "Bearer" {
			observability.AuthOutcomesTotal.WithLabelValues("missing_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
			return
		}

		userID, err := tokens.Verify(parts[1])
		if err != nil {
			// The concrete failure (malformed, bad signature, expired)
			// stays in the logs; the client response is uniform.
			logger.Warn("token rejected",
				slog.String("path", c.FullPath()),
				slog.String("remote_addr", c.ClientIP()),
				slog.String("error", err.Error()),
			)
			observability.AuthOutcomesTotal.WithLabelValues("invalid_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		observability.AuthOutcomesTotal.WithLabelValues("ok").Inc()
		ctx := WithIdentity(c.Request.Context(), Identity{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
