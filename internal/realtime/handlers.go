package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handlers contains the websocket endpoint
type Handlers struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandlers builds the websocket handler. checkOrigin may be nil to allow
// every origin.
func NewHandlers(hub *Hub, checkOrigin func(r *http.Request) bool) *Handlers {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeWS upgrades the request and streams status events. The optional
// instanceId query parameter restricts the stream to one instance.
func (h *Handlers) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := NewClient(h.hub, conn, c.Query("instanceId"))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
