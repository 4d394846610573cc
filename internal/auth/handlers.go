package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
)

// Handlers contains HTTP handlers for authentication
type Handlers struct {
	app     *app.App
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new authentication handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{
		app:     app,
		service: NewService(app),
		logger:  app.Logger.With("component", "auth"),
	}
}

// GetQRHandler returns the pending QR code as a PNG data URL. Both unknown
// instances and instances without a pending code answer 404.
func (h *Handlers) GetQRHandler(c *gin.Context) {
	id := c.Param("instanceId")
	qr, err := h.service.FetchQR(id)
	if err != nil {
		h.logger.Debug("QR not available", "instance", id, "reason", err)
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "QR code not available. Ensure the instance is initialized and awaiting authentication.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "qrCodeUrl": qr})
}
