package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	"github.com/yourusername/accounts-api/internal/domain/repository"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
	"github.com/yourusername/accounts-api/pkg/auth"
)

// Context keys set by RequireAuth.
const (
	ContextUserKey  = "current_user"
	ContextEmailKey = "email"
)

// AuthMiddleware guards routes behind a valid session token.
type AuthMiddleware struct {
	jwtService *auth.JWTService
	userRepo   repository.UserRepository
}

func NewAuthMiddleware(jwtService *auth.JWTService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

// RequireAuth validates the Bearer token and resolves the account it names.
// Admin status comes from the stored account on every request, not from the
// token, so a demotion takes effect immediately.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			c.Abort()
			return
		}

		subject, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired", "error_type": "token_expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "error_type": "token_invalid"})
			}
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByEmail(subject)
		if err != nil {
			// A token for a deleted account is as good as no token.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "error_type": "token_invalid"})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextEmailKey, user.Email)

		c.Next()
	}
}

// AdminOnly rejects authenticated non-admin accounts with 403. Must run
// after RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			c.Abort()
			return
		}

		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin rights required", "error_type": "forbidden"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser extracts the account resolved by RequireAuth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*entity.User)
	return user, ok
}
