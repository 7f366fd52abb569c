package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/orgball2608/storyshare/internal/app"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
)

func main() {
	log := logger.New(logger.Opts{})

	cfg, err := config.New()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	options := []fx.Option{
		fx.Logger(log),
		app.Module,
	}
	if cfg.Telegram.Enabled {
		options = append(options, app.BotModule)
	}

	app := fx.New(options...)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		log.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Gracefully shutdown the application
	if err := app.Stop(context.Background()); err != nil {
		log.Error("Failed to stop application", "error", err)
		os.Exit(1)
	}
}
