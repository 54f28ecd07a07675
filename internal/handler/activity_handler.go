package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// ActivityHandler serves the activity feed listing.
type ActivityHandler struct {
	activityService *service.ActivityService
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List handles GET /v1/activity
func (h *ActivityHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	filter := repository.ListFilter{Level: c.Query("level")}
	if filter.Level != "" && !models.IsValidLevel(filter.Level) {
		utils.Error(c, 400, "INVALID_LEVEL", "Level must be info, warning, or error")
		return
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil || userID < 1 {
			utils.Error(c, 400, "INVALID_USER_ID", "userId must be a positive integer")
			return
		}
		filter.UserID = userID
	}

	entries, total, err := h.activityService.List(c.Request.Context(), page, limit, filter)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve activity")
		return
	}

	utils.Success(c, 200, "Activity retrieved", utils.NewListData(entries, page, limit, total))
}
