package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// WorkspaceHandler exposes file-explorer and editor endpoints over the
// allow-listed workspace roots.
type WorkspaceHandler struct {
	fsService       *service.FSService
	activityService *service.ActivityService
}

// NewWorkspaceHandler constructs a WorkspaceHandler.
func NewWorkspaceHandler(fsService *service.FSService, activityService *service.ActivityService) *WorkspaceHandler {
	return &WorkspaceHandler{fsService: fsService, activityService: activityService}
}

// Browse handles GET /v1/workspace/browse?path=
func (h *WorkspaceHandler) Browse(c *gin.Context) {
	entries, err := h.fsService.Browse(c.Query("path"))
	if err != nil {
		h.fsError(c, err, "Failed to browse directory")
		return
	}
	utils.Success(c, 200, "Directory listed", gin.H{"entries": entries})
}

// GetPermissions handles GET /v1/workspace/permissions?path=
func (h *WorkspaceHandler) GetPermissions(c *gin.Context) {
	info, err := h.fsService.GetPermissions(c.Query("path"))
	if err != nil {
		h.fsError(c, err, "Failed to read permissions")
		return
	}
	utils.Success(c, 200, "Permissions retrieved", info)
}

// SetPermissions handles PUT /v1/workspace/permissions
func (h *WorkspaceHandler) SetPermissions(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	if err := h.fsService.SetPermissions(req.Path, req.Mode); err != nil {
		h.fsError(c, err, "Failed to change permissions")
		return
	}

	user := middleware.GetUser(c)
	h.activityService.RecordAsync(c.Request.Context(), &user.ID, user.Name, "chmod",
		fmt.Sprintf("set mode %s on %s", req.Mode, req.Path), models.LevelInfo)

	utils.Success(c, 200, "Permissions updated", nil)
}

// ReadFile handles GET /v1/workspace/file?path=
func (h *WorkspaceHandler) ReadFile(c *gin.Context) {
	content, err := h.fsService.ReadFile(c.Query("path"))
	if err != nil {
		h.fsError(c, err, "Failed to read file")
		return
	}
	utils.Success(c, 200, "File read", gin.H{"content": content})
}

// WriteFile handles PUT /v1/workspace/file
func (h *WorkspaceHandler) WriteFile(c *gin.Context) {
	var req struct {
		Path    string `json:"path" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	if err := h.fsService.WriteFile(req.Path, req.Content); err != nil {
		h.fsError(c, err, "Failed to write file")
		return
	}

	user := middleware.GetUser(c)
	h.activityService.RecordAsync(c.Request.Context(), &user.ID, user.Name, "write_file",
		fmt.Sprintf("saved %s", req.Path), models.LevelInfo)

	utils.Success(c, 200, "File saved", nil)
}

func (h *WorkspaceHandler) fsError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrPathNotAllowed):
		utils.Error(c, 403, "PATH_NOT_ALLOWED", "Path is outside the allowed workspace roots")
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, 404, "NOT_FOUND", "Path does not exist")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", fallback)
	}
}
