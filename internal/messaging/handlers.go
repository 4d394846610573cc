package messaging

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

// Handlers contains HTTP handlers for messaging
type Handlers struct {
	app     *app.App
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new messaging handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{
		app:     app,
		service: NewService(app),
		logger:  app.Logger.With("component", "messaging"),
	}
}

// SendMessageHandler handles sending a text message
func (h *Handlers) SendMessageHandler(c *gin.Context) {
	id := c.Param("instanceId")
	var req SendMessageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "number and message are required."})
		return
	}

	res, err := h.service.SendText(c.Request.Context(), id, req.Number, req.Message, req.RefID)
	if err != nil {
		if errors.Is(err, session.ErrInstanceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
			return
		}
		h.logger.Error("message send failed", "instance", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message.", "error": err.Error()})
		return
	}

	resp := gin.H{"success": true, "message": "Message sent successfully.", "messageId": res.MessageID}
	if res.RefID != "" {
		resp["refId"] = res.RefID
	}
	c.JSON(http.StatusOK, resp)
}
