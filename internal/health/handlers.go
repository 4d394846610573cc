package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

// Version is reported by the health endpoints; overridden at build time.
var Version = "dev"

// Handlers contains HTTP handlers for health checks
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new health handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{app: app}
}

// RootHandler handles the root endpoint for Docker health checks
func (h *Handlers) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(h.app.StartTime).String(),
		"session_count": h.app.Registry.Count(),
		"version":       Version,
	})
}

// HealthCheckHandler reports uptime and how many sessions sit in each state
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	byState := map[string]int{}
	ready := 0
	sessions := h.app.Registry.All()
	for _, sess := range sessions {
		state := sess.State()
		byState[state.String()]++
		if state == session.StateReady {
			ready++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"uptime":            time.Since(h.app.StartTime).String(),
		"total_sessions":    len(sessions),
		"ready_sessions":    ready,
		"sessions_by_state": byState,
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}
