package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/orderflow/internal/broker"
	"github.com/drblury/orderflow/internal/config"
	"github.com/drblury/orderflow/internal/logging"
	"github.com/drblury/orderflow/internal/order"
	"github.com/drblury/orderflow/internal/order/rates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New("order", cfg.LogLevel)
	log.Info("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := order.NewPostgresStore(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("database ready")

	publisher, err := broker.NewPublisher(cfg.AMQPURL, cfg.QueueName, log)
	if err != nil {
		log.Error("publisher init failed", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer cache.Close()
	}
	rateSource := rates.NewClient(cfg.RateURL, cache, cfg.RateTTL)

	svc := order.NewService(store, rateSource, publisher, cfg.RateDefault, log)
	router := order.NewRouter(svc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(gctx, cfg.HTTPPort, router)
	})
	g.Go(func() error {
		mux := chi.NewRouter()
		mux.Handle("/metrics", promhttp.Handler())
		return serve(gctx, cfg.MetricsPort, mux)
	})
	log.Info("serving", "port", cfg.HTTPPort, "metrics_port", cfg.MetricsPort)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("shut down")
}

func serve(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
