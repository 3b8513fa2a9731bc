// admin_only.go
package middleware

import (
	"net/http"
	"slices"

	"delivery-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminOnly corta la request si el usuario no tiene el permiso admin.
// Va después de AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(c.GetStringSlice(CtxUserPermissions), service.PermissionAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}
