package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers contains HTTP handlers for session management
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new session handlers instance
func NewHandlers(ctrl *Controller, logger *slog.Logger) *Handlers {
	logger = logger.With("component", "session-http")
	return &Handlers{
		service: NewService(ctrl, logger),
		logger:  logger,
	}
}

// AddDeviceHandler starts initialization of a new instance. The response
// only acknowledges the request; callers poll /status or /get-qr.
func (h *Handlers) AddDeviceHandler(c *gin.Context) {
	id := c.Param("instanceId")
	if err := h.service.Create(id); err != nil {
		switch {
		case errors.Is(err, ErrInstanceAlreadyExists):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Instance already exists."})
		case errors.Is(err, ErrInvalidInstanceID):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid instance id."})
		default:
			h.logger.Error("creating instance", "instance", id, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Failed to start instance.", "error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Initialization for instance " + id + " started."})
}

// StatusHandler reports the lifecycle state of an instance
func (h *Handlers) StatusHandler(c *gin.Context) {
	id := c.Param("instanceId")
	status, err := h.service.Status(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}

// ListHandler lists every registered instance
func (h *Handlers) ListHandler(c *gin.Context) {
	instances := h.service.List()
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(instances), "instances": instances})
}

// RemoveDeviceHandler tears an instance down and forgets its record
func (h *Handlers) RemoveDeviceHandler(c *gin.Context) {
	id := c.Param("instanceId")
	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
			return
		}
		h.logger.Error("removing instance", "instance", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to remove instance.", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Instance " + id + " removed."})
}
