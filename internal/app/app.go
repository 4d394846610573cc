package app

import (
	"log/slog"
	"time"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
	"github.com/neekaru/whatsappgo-fleet/internal/config"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

// App holds shared application state and resources
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      store.Store
	Registry   *session.Registry
	Controller *session.Controller
	StartTime  time.Time // Track startup time for health checks
}

// NewApp wires the session controller over st, building clients with
// factory and encoding QR codes with encodeQR.
func NewApp(cfg *config.Config, logger *slog.Logger, st store.Store, factory client.Factory, encodeQR session.QREncoder) *App {
	if logger == nil {
		logger = slog.Default()
	}
	registry := session.NewRegistry()
	ctrl := session.NewController(registry, st, factory, encodeQR, session.Options{
		StoreTimeout:    cfg.Session.StoreTimeout,
		ObserverWorkers: cfg.Session.ObserverWorkers,
	}, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Registry:   registry,
		Controller: ctrl,
		StartTime:  time.Now(),
	}
}
