package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/logger"
	"github.com/huangang/taskdesk/pkg/response"
)

// SSEHandler streams task events to open boards
type SSEHandler struct {
	hub *services.EventHub
}

func NewSSEHandler(hub *services.EventHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// StreamTaskEvents handles SSE connections. The route sits behind
// middleware.VerifiedCredential, which also accepts the token as a query
// parameter. project_id narrows the stream to one project.
// GET /api/events/tasks
func (h *SSEHandler) StreamTaskEvents(c *gin.Context) {
	var projectID int64
	if raw := c.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid project id")
			return
		}
		projectID = id
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Str("user", middleware.GetUsername(c)).Int64("project_id", projectID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			// events without a project (deletes) go to everyone
			if projectID != 0 && event.ProjectID != 0 && event.ProjectID != projectID {
				return true
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
