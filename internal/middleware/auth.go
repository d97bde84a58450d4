package middleware

import (
	"context"
	"net/http"
	"strings"

	domainUser "service-template/internal/domain/user"
	"service-template/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	userKey   = "user"
	userIDKey = "userID"
)

// Authenticator verifies an access token and returns the live principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domainUser.User, error)
}

// ExtractAccessToken reads the access token from the session cookie or,
// failing that, from a bearer Authorization header.
func ExtractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}

func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := ExtractAccessToken(c)
		if accessToken == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), accessToken)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)

		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*domainUser.User, bool) {
	value, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domainUser.User)
	return user, ok
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
