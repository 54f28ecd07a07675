package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are already constrained by the CORS allow-list; the socket
	// endpoint additionally requires a valid session token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades dashboard connections onto the activity hub.
type WSHandler struct {
	hub *ws.Hub
}

// NewWSHandler constructs a WSHandler for the given hub.
func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Stream handles GET /v1/activity/ws?token=<session>
// It blocks for the lifetime of the connection, reading only keep-alive pings.
func (h *WSHandler) Stream(c *gin.Context) {
	user := middleware.GetUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID := uuid.New().String()
	log.Debug().Str("client_id", clientID).Int("user_id", user.ID).Msg("Activity socket opened")

	client := h.hub.Add(clientID, conn)
	h.hub.ReadLoop(client)
}
