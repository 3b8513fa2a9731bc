// auth_middleware.go
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"delivery-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Claves del contexto de gin
const (
	CtxUserID          = "userID"
	CtxUserName        = "userName"
	CtxUserPermissions = "userPermissions"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.AuthUser, error)
}

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(logger *slog.Logger, auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn("token rejected", slog.String("path", c.FullPath()), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserName, user.Name)
		c.Set(CtxUserPermissions, user.Permissions)
		c.Next()
	}
}
