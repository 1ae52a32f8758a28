package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/accounts-api/internal/handler/dto"
	"github.com/yourusername/accounts-api/internal/handler/helper"
	"github.com/yourusername/accounts-api/internal/service"
)

// AdminHandler handles the admin-only user management endpoints.
type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// CreateUserRequest is the body of POST /api/admin/users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// ListUsers returns a page of accounts.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	users, err := h.adminService.ListUsers(limit, offset)
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": dto.NewUserListResponse(users), "count": len(users)})
}

// ExportUsers streams all accounts as an XLSX workbook.
func (h *AdminHandler) ExportUsers(c *gin.Context) {
	data, err := h.adminService.ExportUsers()
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	filename := fmt.Sprintf("users-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// GetUser returns a single account by email.
func (h *AdminHandler) GetUser(c *gin.Context) {
	email := c.Param("email")

	user, err := h.adminService.GetUser(email)
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// CreateUser provisions a pre-verified account.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	user, err := h.adminService.CreateUser(req.Email, req.Password)
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// DeleteUser removes a single account by email.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	email := c.Param("email")

	if err := h.adminService.DeleteUser(email); err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// DeleteAllUsers removes every non-admin account.
func (h *AdminHandler) DeleteAllUsers(c *gin.Context) {
	deleted, err := h.adminService.DeleteAllNonAdmin()
	if err != nil {
		helper.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Users deleted", "deleted": deleted})
}
