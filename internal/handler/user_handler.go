package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// UserHandler handles user management HTTP endpoints (admin only).
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List handles GET /v1/users
func (h *UserHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	search := c.Query("search")

	users, total, err := h.userService.List(page, limit, search)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve users")
		return
	}

	utils.Success(c, 200, "Users retrieved", utils.NewListData(users, page, limit, total))
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid user ID")
		return
	}

	user, err := h.userService.Get(id)
	if err != nil {
		if errors.Is(err, utils.ErrUserNotFound) {
			utils.Error(c, 404, "USER_NOT_FOUND", "User not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve user")
		return
	}

	utils.Success(c, 200, "User retrieved", user)
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.GetUser(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEmailTaken):
			utils.Error(c, 409, "EMAIL_TAKEN", "Email is already in use")
		case errors.Is(err, utils.ErrInvalidRole):
			utils.Error(c, 400, "INVALID_ROLE", "Unknown role")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create user")
		}
		return
	}

	utils.Success(c, 201, "User created successfully", user)
}

// Update handles PUT /v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid user ID")
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	user, err := h.userService.Update(c.Request.Context(), middleware.GetUser(c), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrUserNotFound):
			utils.Error(c, 404, "USER_NOT_FOUND", "User not found")
		case errors.Is(err, utils.ErrEmailTaken):
			utils.Error(c, 409, "EMAIL_TAKEN", "Email is already in use")
		case errors.Is(err, utils.ErrInvalidRole):
			utils.Error(c, 400, "INVALID_ROLE", "Unknown role")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update user")
		}
		return
	}

	utils.Success(c, 200, "User updated successfully", user)
}

// Delete handles DELETE /v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid user ID")
		return
	}

	err = h.userService.Delete(c.Request.Context(), middleware.GetUser(c), id)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSelfDelete):
			utils.Error(c, 400, "SELF_DELETE", "Cannot delete your own account")
		case errors.Is(err, utils.ErrUserNotFound):
			utils.Error(c, 404, "USER_NOT_FOUND", "User not found")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete user")
		}
		return
	}

	utils.Success(c, 200, "User deleted successfully", nil)
}
