package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// DesktopHandler lists and proxies the configured remote-desktop upstreams.
type DesktopHandler struct {
	desktopService *service.DesktopService
}

// NewDesktopHandler constructs a DesktopHandler.
func NewDesktopHandler(desktopService *service.DesktopService) *DesktopHandler {
	return &DesktopHandler{desktopService: desktopService}
}

// List handles GET /v1/desktops
func (h *DesktopHandler) List(c *gin.Context) {
	utils.Success(c, 200, "Desktops retrieved", gin.H{"items": h.desktopService.List()})
}

// Proxy handles ANY /v1/desktops/:name/*path by forwarding to the registered
// upstream. Unknown names 404 without any upstream connection.
func (h *DesktopHandler) Proxy(c *gin.Context) {
	name := c.Param("name")
	proxy, ok := h.desktopService.Proxy(name)
	if !ok {
		utils.Error(c, 404, "DESKTOP_NOT_FOUND", "Unknown desktop")
		return
	}

	// Strip the route prefix so the upstream sees its own paths.
	prefix := "/v1/desktops/" + name
	http.StripPrefix(prefix, proxy).ServeHTTP(c.Writer, c.Request)
}
