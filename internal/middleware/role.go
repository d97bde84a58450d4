package middleware

import (
	"context"
	"net/http"

	"service-template/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoleResolver computes the full role set for a user, directly assigned
// roles plus every ancestor in the hierarchy.
type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RequireRoles authorizes the request if the authenticated user's resolved
// role set contains any of the allowed names. Must run after AuthMiddleware.
func RequireRoles(resolver RoleResolver, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}

		roles, err := resolver.ResolveRoles(c.Request.Context(), userID)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve roles")
			c.Abort()
			return
		}

		held := make(map[string]bool, len(roles))
		for _, role := range roles {
			held[role] = true
		}

		for _, allowed := range allowedRoles {
			if held[allowed] {
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func AdminOnly(resolver RoleResolver) gin.HandlerFunc {
	return RequireRoles(resolver, "admin")
}
