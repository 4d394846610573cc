package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/auth"
	"github.com/neekaru/whatsappgo-fleet/internal/client"
	"github.com/neekaru/whatsappgo-fleet/internal/config"
	"github.com/neekaru/whatsappgo-fleet/internal/realtime"
	"github.com/neekaru/whatsappgo-fleet/internal/server"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
	"github.com/neekaru/whatsappgo-fleet/internal/store"
	"github.com/neekaru/whatsappgo-fleet/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("WAGATE_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logOpts := logger.Options{Dir: cfg.Logging.Dir, Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	log, err := logger.Setup(logOpts)
	if err != nil {
		log = logger.Fallback(logOpts)
		log.Warn("file logging disabled", "error", err)
	}
	defer logger.Close()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.StoreDSN(), log)
	if err != nil {
		return err
	}
	defer st.Close()

	factory := client.NewFactory(client.Options{
		DataDir:        cfg.DataDir,
		LogLevel:       cfg.Logging.ClientLevel,
		HistoryPerChat: cfg.Session.HistoryPerChat,
		Logger:         log,
	})
	a := app.NewApp(cfg, log, st, factory, auth.NewQREncoder(cfg.Session.QRSize))

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := realtime.NewHub(log)
	go hub.Run(hubCtx)
	a.Controller.Subscribe(hub)
	a.Controller.Subscribe(session.LogObserver(log.With("component", "lifecycle")))

	// Rebuild the fleet from the session store
	if err := a.Controller.Restore(ctx); err != nil {
		return err
	}

	srv := server.NewServer(a, hub)
	errCh := srv.Start()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Controller.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Info("server exited")
	return errors.Join(errs...)
}
