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

// DefinitionHandler serves skill or agent markdown definitions. One instance
// is mounted under /v1/skills and another under /v1/agents.
type DefinitionHandler struct {
	skillService    *service.SkillService
	activityService *service.ActivityService
	kind            string
}

// NewDefinitionHandler constructs a DefinitionHandler for one document kind.
func NewDefinitionHandler(skillService *service.SkillService, activityService *service.ActivityService, kind string) *DefinitionHandler {
	return &DefinitionHandler{skillService: skillService, activityService: activityService, kind: kind}
}

// List handles GET /v1/{skills,agents}
func (h *DefinitionHandler) List(c *gin.Context) {
	defs, err := h.skillService.List()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to list definitions")
		return
	}
	utils.Success(c, 200, "Definitions retrieved", gin.H{"items": defs, "total": len(defs)})
}

// Get handles GET /v1/{skills,agents}/:name
func (h *DefinitionHandler) Get(c *gin.Context) {
	def, err := h.skillService.Get(c.Param("name"))
	if err != nil {
		h.notFoundOrError(c, err)
		return
	}
	utils.Success(c, 200, "Definition retrieved", def)
}

// Save handles POST /v1/{skills,agents}
func (h *DefinitionHandler) Save(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	def, fields, err := h.skillService.Save(req.Content)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to save definition")
		return
	}
	if fields != nil {
		utils.ValidationError(c, "Invalid front-matter", fields)
		return
	}

	user := middleware.GetUser(c)
	h.activityService.RecordAsync(c.Request.Context(), &user.ID, user.Name, "save_"+h.kind,
		fmt.Sprintf("saved %s %q", h.kind, def.Name), models.LevelInfo)

	utils.Success(c, 201, "Definition saved", def)
}

// Preview handles GET /v1/{skills,agents}/:name/preview
func (h *DefinitionHandler) Preview(c *gin.Context) {
	html, err := h.skillService.Preview(c.Param("name"))
	if err != nil {
		h.notFoundOrError(c, err)
		return
	}
	utils.Success(c, 200, "Preview rendered", gin.H{"html": html})
}

func (h *DefinitionHandler) notFoundOrError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidName):
		utils.Error(c, 400, "INVALID_NAME", "Invalid definition name")
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, 404, "NOT_FOUND", "Definition not found")
	case errors.Is(err, utils.ErrInvalidFrontMatter):
		utils.Error(c, 500, "INVALID_FRONT_MATTER", "Stored definition has invalid front-matter")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load definition")
	}
}
