package media

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

// Handlers contains HTTP handlers for media operations
type Handlers struct {
	app     *app.App
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new media handlers instance
func NewHandlers(app *app.App) *Handlers {
	svc := NewService(app)
	return &Handlers{app: app, service: svc, logger: svc.logger}
}

// SendMediaHandler handles sending media fetched from a URL
func (h *Handlers) SendMediaHandler(c *gin.Context) {
	id := c.Param("instanceId")
	var req SendMediaRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "number and mediaUrl are required."})
		return
	}

	msgID, err := h.service.SendMedia(c.Request.Context(), id, req.Number, req.MediaURL, req.Caption)
	if err != nil {
		if errors.Is(err, session.ErrInstanceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
			return
		}
		h.logger.Error("media send failed", "instance", id, "url", req.MediaURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send media message.", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Media message sent successfully.", "messageId": msgID})
}

// GetMediaHandler returns the media of a recent message
func (h *Handlers) GetMediaHandler(c *gin.Context) {
	id := c.Param("instanceId")
	messageID := c.Param("messageId")

	m, err := h.service.FetchMedia(c.Request.Context(), id, messageID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "media": m})
	case errors.Is(err, session.ErrInstanceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
	case errors.Is(err, session.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Client is not ready. Please try again later."})
	case errors.Is(err, ErrMediaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Media not found."})
	default:
		h.logger.Error("media fetch failed", "instance", id, "message_id", messageID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve media.", "error": err.Error()})
	}
}
