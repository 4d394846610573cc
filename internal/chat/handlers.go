package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

// Handlers contains HTTP handlers for chats and messages
type Handlers struct {
	app     *app.App
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new chat handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{
		app:     app,
		service: NewService(app),
		logger:  app.Logger.With("component", "chat"),
	}
}

// GetChatBackupHandler lists all chats of an instance
func (h *Handlers) GetChatBackupHandler(c *gin.Context) {
	id := c.Param("instanceId")
	chats, err := h.service.ListChats(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, "Failed to retrieve chats.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

// GetMessagesHandler returns the latest messages exchanged with a user
func (h *Handlers) GetMessagesHandler(c *gin.Context) {
	id := c.Param("instanceId")
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Limit must be a positive integer."})
		return
	}

	msgs, err := h.service.FetchMessages(c.Request.Context(), id, c.Param("userId"), limit)
	if err != nil {
		h.fail(c, id, "Failed to retrieve messages.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

func (h *Handlers) fail(c *gin.Context, id, message string, err error) {
	switch {
	case errors.Is(err, session.ErrInstanceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Instance not found."})
	case errors.Is(err, session.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Client is not ready. Please try again later."})
	case errors.Is(err, ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Limit must be a positive integer."})
	case errors.Is(err, ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found."})
	default:
		h.logger.Error(message, "instance", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": message, "error": err.Error()})
	}
}
