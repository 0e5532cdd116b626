package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"nfl-pickem-live/config"
	"nfl-pickem-live/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	cfg.LogConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to start: %+v", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logging.Errorf("Exited with error: %+v", err)
		app.Close()
		os.Exit(1)
	}
	logging.Info("Shutdown complete")
}
