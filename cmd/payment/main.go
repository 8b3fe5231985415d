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
	"github.com/drblury/orderflow/internal/logging"
	"github.com/drblury/orderflow/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New("payment", cfg.LogLevel)
	log.Info("starting", "config", cfg.String())

	handler := payment.NewHandler(nil, log)
	consumer, err := app.NewConsumer("payment", cfg, handler, log)
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
