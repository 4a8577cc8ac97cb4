package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// Authenticator resolves the caller from the Authorization header
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id in the gin context.
func RequireAuth(authn Authenticator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID, err := authn.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			logger.Debug("authentication failed", zap.String("path", c.FullPath()), zap.Error(err))
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// userID returns the authenticated caller; empty when RequireAuth did not run
func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
