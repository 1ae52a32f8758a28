package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/accounts-api/internal/handler/dto"
	"github.com/yourusername/accounts-api/internal/handler/helper"
	"github.com/yourusername/accounts-api/internal/middleware"
	"github.com/yourusername/accounts-api/internal/service"
)

// UserHandler handles profile requests for the authenticated account.
type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// UpdateProfileRequest is the body of PUT /api/users/profile. Both fields
// are optional; absent fields stay unchanged.
type UpdateProfileRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6,max=72"`
}

// Me returns the account resolved from the session token.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// GetProfile returns the current account's profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return
	}

	profile, err := h.authService.GetProfile(user.Email)
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(profile))
}

// UpdateProfile changes the current account's email and/or password.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	updated, err := h.authService.UpdateProfile(user.Email, service.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(updated))
}
