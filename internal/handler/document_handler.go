package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// StreamEvent is one SSE payload on the refinement stream. Chunk events carry
// only the incremental text; the terminal complete event carries the full
// assembled document.
type StreamEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// DocumentHandler exposes the AI document drafting endpoints.
type DocumentHandler struct {
	documentService *service.DocumentService
	activityService *service.ActivityService
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(documentService *service.DocumentService, activityService *service.ActivityService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, activityService: activityService}
}

// Generate handles POST /v1/documents/generate — one-shot generation.
func (h *DocumentHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	text, err := h.documentService.Generate(c.Request.Context(), &req)
	if err != nil {
		log.Error().Err(err).Str("kind", req.Kind).Msg("Document generation failed")
		utils.Error(c, 500, "PROVIDER_FAILURE", "Document generation failed")
		return
	}

	user := middleware.GetUser(c)
	h.activityService.RecordAsync(c.Request.Context(), &user.ID, user.Name, "generate_document",
		fmt.Sprintf("generated %s draft %q", req.Kind, req.Name), models.LevelInfo)

	utils.Success(c, 200, "Document generated", gin.H{"content": text})
}

// Stream handles POST /v1/documents/refine/stream — SSE relay of the
// provider's incremental output. Once the stream starts the HTTP status is
// committed at 200, so provider errors travel as error events inside it.
func (h *DocumentHandler) Stream(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, "Invalid request body", bindingFieldErrors(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	textChan, errChan := h.documentService.GenerateStream(c.Request.Context(), &req)

	var full strings.Builder
	done := false
	for !done {
		select {
		case fragment, ok := <-textChan:
			if !ok {
				done = true
				break
			}
			full.WriteString(fragment)
			writeEvent(c.Writer, StreamEvent{Type: "chunk", Text: fragment})
		case <-c.Request.Context().Done():
			return
		}
	}

	// The error channel is closed after the text channel; a buffered error is
	// still readable here.
	if err := <-errChan; err != nil {
		log.Error().Err(err).Str("kind", req.Kind).Msg("Document stream failed")
		writeEvent(c.Writer, StreamEvent{Type: "error", Message: "document generation failed"})
		return
	}

	writeEvent(c.Writer, StreamEvent{Type: "complete", Text: service.StripCodeFence(full.String())})

	user := middleware.GetUser(c)
	h.activityService.RecordAsync(c.Request.Context(), &user.ID, user.Name, "refine_document",
		fmt.Sprintf("refined %s draft %q", req.Kind, req.Name), models.LevelInfo)
}

// writeEvent emits one `data: <json>` SSE frame and flushes it immediately.
func writeEvent(w gin.ResponseWriter, ev StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(io.Writer(w), "data: %s\n\n", data)
	w.Flush()
}
