package server

import (
	"github.com/neekaru/whatsappgo-fleet/internal/auth"
	"github.com/neekaru/whatsappgo-fleet/internal/chat"
	"github.com/neekaru/whatsappgo-fleet/internal/health"
	"github.com/neekaru/whatsappgo-fleet/internal/media"
	"github.com/neekaru/whatsappgo-fleet/internal/messaging"
	"github.com/neekaru/whatsappgo-fleet/internal/realtime"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

// SetupRoutes configures all the routes for the application
func (s *Server) SetupRoutes() {
	// Register health check handlers
	healthHandlers := health.NewHandlers(s.app)
	s.router.GET("/", healthHandlers.RootHandler)
	s.router.GET("/health", healthHandlers.HealthCheckHandler)

	// Register session handlers
	sessionHandlers := session.NewHandlers(s.app.Controller, s.app.Logger)
	s.router.GET("/add-device/:instanceId", sessionHandlers.AddDeviceHandler)
	s.router.GET("/status/:instanceId", sessionHandlers.StatusHandler)
	s.router.GET("/instances", sessionHandlers.ListHandler)
	s.router.DELETE("/remove-device/:instanceId", sessionHandlers.RemoveDeviceHandler)

	// Register authentication handlers
	authHandlers := auth.NewHandlers(s.app)
	s.router.GET("/get-qr/:instanceId", authHandlers.GetQRHandler)

	// Register messaging handlers
	messagingHandlers := messaging.NewHandlers(s.app)
	s.router.GET("/send-message/:instanceId", messagingHandlers.SendMessageHandler)

	// Register media handlers
	mediaHandlers := media.NewHandlers(s.app)
	s.router.GET("/send-media/:instanceId", mediaHandlers.SendMediaHandler)
	s.router.GET("/get-media/:instanceId/:messageId", mediaHandlers.GetMediaHandler)

	// Register chat handlers
	chatHandlers := chat.NewHandlers(s.app)
	s.router.GET("/get-chat-backup/:instanceId", chatHandlers.GetChatBackupHandler)
	s.router.GET("/get-messages/:instanceId/:userId/:limit", chatHandlers.GetMessagesHandler)

	// Register the status stream
	if s.hub != nil {
		wsHandlers := realtime.NewHandlers(s.hub, s.checkOrigin)
		s.router.GET("/ws", wsHandlers.ServeWS)
	}
}
