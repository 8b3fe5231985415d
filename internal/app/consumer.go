// Package app hosts the process-level wiring shared by the consumer binaries:
// one supervised subscription running next to a health and metrics HTTP
// surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/orderflow/internal/broker"
	"github.com/drblury/orderflow/internal/config"
	"github.com/drblury/orderflow/internal/jsoncodec"
)

// Consumer bundles a supervised queue subscription with its HTTP surface.
// When the supervisor exhausts its retry budget the subscription is dead for
// good, but the HTTP surface keeps serving: liveness stays green while
// readiness flips to 503 so the condition is visible without killing the
// process.
type Consumer struct {
	name string
	cfg  *config.Config
	sup  *broker.Supervisor
	log  *slog.Logger

	dead atomic.Bool
}

// NewConsumer wires a consumer service around the given handler.
func NewConsumer(name string, cfg *config.Config, handler broker.Handler, log *slog.Logger) (*Consumer, error) {
	sup, err := broker.NewSupervisor(broker.SupervisorConfig{
		Service:     name,
		URL:         cfg.AMQPURL,
		Queue:       cfg.QueueName,
		MaxRetries:  cfg.MaxRetries,
		BackoffUnit: cfg.BackoffUnit,
		BackoffCap:  cfg.BackoffCap,
	}, handler, log)
	if err != nil {
		return nil, err
	}
	return &Consumer{name: name, cfg: cfg, sup: sup, log: log}, nil
}

// Run serves until ctx is cancelled. A terminally dead subscription does not
// stop the HTTP servers.
func (c *Consumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := c.sup.Run(gctx)
		if errors.Is(err, broker.ErrRetriesExhausted) {
			c.dead.Store(true)
			c.log.Error("subscription terminally dead, process stays up", "queue", c.cfg.QueueName)
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return c.serve(gctx, c.cfg.HTTPPort, c.healthRouter())
	})
	g.Go(func() error {
		mux := chi.NewRouter()
		mux.Handle("/metrics", promhttp.Handler())
		return c.serve(gctx, c.cfg.MetricsPort, mux)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// healthRouter exposes the service descriptor, liveness, and readiness.
func (c *Consumer) healthRouter() chi.Router {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": c.name,
			"status":  "listening",
			"queue":   c.cfg.QueueName,
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		state := c.sup.State()
		body := map[string]string{"state": state.String()}
		if c.dead.Load() {
			body["state"] = "dead"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})

	return r
}

func (c *Consumer) serve(ctx context.Context, port int, handler http.Handler) error {
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jsoncodec.Encode(w, v)
}
