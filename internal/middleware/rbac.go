package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/response"
)

// RequireRoles gates a route on the caller's role claim. This is a coarse
// route-level check; workflow transitions re-resolve the active role from the
// database before deciding.
func RequireRoles(roles ...models.RoleID) gin.HandlerFunc {
	allowed := make(map[models.RoleID]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.RoleID]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbiddenRole, "role not allowed for this endpoint"))
			c.Abort()
			return
		}
		c.Next()
	}
}
