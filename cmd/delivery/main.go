package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drblury/orderflow/internal/app"
	"github.com/drblury/orderflow/internal/config"
	"github.com/drblury/orderflow/internal/delivery"
	"github.com/drblury/orderflow/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New("delivery", cfg.LogLevel)
	log.Info("starting", "config", cfg.String())

	handler := delivery.NewHandler(nil, log)
	consumer, err := app.NewConsumer("delivery", cfg, handler, log)
	if err != nil {
		log.Error("wiring failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer failed", "error", err)
		os.Exit(1)
	}
	log.Info("shut down")
}
