// Command durabletask-worker is a worker process that hosts a small set of
// sample activities and entities.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/durabletask"
	"github.com/dogmatiq/durabletask/activity"
	"github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/internal/hostconfig"
	"github.com/dogmatiq/durabletask/internal/x/loggingx"
	"github.com/dogmatiq/durabletask/metrics"
	"github.com/dogmatiq/durabletask/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := hostconfig.Load(config.Environment())
	if err != nil {
		return err
	}

	z, err := newZapLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer z.Sync() // nolint:errcheck

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()

	w := durabletask.New(
		append(
			cfg.WorkerOptions(),
			durabletask.WithActivities(reg),
			durabletask.WithEntities(reg),
			durabletask.WithLogger(loggingx.Zap{Target: z}),
			durabletask.WithObserver(metrics.NewObserver(promRegistry)),
		)...,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx)
	})

	g.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsAddress, promRegistry)
	})

	return g.Wait()
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

// serveMetrics serves the Prometheus metrics in r until ctx is canceled.
func serveMetrics(ctx context.Context, addr string, r *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		server.Shutdown(shutdownCtx) // nolint:errcheck
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// newRegistry returns a registry containing the sample tasks.
func newRegistry() (*registry.Registry, error) {
	r := registry.New()

	if err := r.AddActivity(
		"SayHello",
		activity.Typed(func(_ context.Context, name string) (string, error) {
			return "Hello, " + name + "!", nil
		}),
	); err != nil {
		return nil, err
	}

	if err := r.AddEntity(
		"Counter",
		entity.Typed(func(_ context.Context, op entity.Operation, n int) (interface{}, int, error) {
			switch op.Name {
			case "add":
				var delta int
				if err := op.GetInput(&delta); err != nil {
					return nil, n, err
				}
				n += delta
			case "reset":
				n = 0
			case "get":
			default:
				return nil, n, fmt.Errorf("unsupported operation '%s'", op.Name)
			}

			return n, n, nil
		}),
	); err != nil {
		return nil, err
	}

	return r, nil
}
