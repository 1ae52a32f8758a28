package helper

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
	"github.com/yourusername/accounts-api/internal/service"
)

// RespondError maps service errors onto HTTP statuses with a stable
// error_type discriminator. Anything unrecognized becomes a generic 500 so
// internals never leak into responses.
func RespondError(c *gin.Context, err error) {
	log.Printf("[Handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)

	switch {
	case errors.Is(err, service.ErrInvalidVerificationCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code", "error_type": "invalid_verification_code"})
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email is not verified", "error_type": "email_not_verified"})
	case errors.Is(err, service.ErrAdminAccountProtected):
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin accounts cannot be deleted", "error_type": "admin_account_protected"})
	case errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired", "error_type": "token_expired"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already exists", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "error_type": "validation_error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
