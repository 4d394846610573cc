package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/realtime"
	"github.com/neekaru/whatsappgo-fleet/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	app    *app.App
	hub    *realtime.Hub
	srv    *http.Server
}

// NewServer creates a new server instance. hub may be nil to disable the
// websocket stream.
func NewServer(app *app.App, hub *realtime.Hub) *Server {
	// Set up gin to log to the same log file
	gin.DefaultWriter = logger.Writer()
	gin.DefaultErrorWriter = logger.Writer()
	if logger.ParseLevel(app.Config.Logging.Level) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(app.Logger))

	// Configure CORS
	r.Use(cors.New(app.Config.GetCorsConfig()))

	s := &Server{
		router: r,
		app:    app,
		hub:    hub,
		srv: &http.Server{
			Addr:    ":" + app.Config.ServerPort,
			Handler: r,
		},
	}
	s.SetupRoutes()
	return s
}

// Router returns the gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.app.Config.CORS.AllowedOrigins
	origin := r.Header.Get("Origin")
	return len(origins) == 0 || origin == "" || slices.Contains(origins, origin)
}

// Start serves HTTP in the background. Listen failures are reported on the
// returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.app.Logger.Info("server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info("shutting down server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
