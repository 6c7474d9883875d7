package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/anonymort/whistle/internal/app"
	"github.com/anonymort/whistle/internal/config"
	"github.com/anonymort/whistle/internal/http"
)

const (
	shutdownTimeout    = 30 * time.Second
	limiterSweepPeriod = time.Minute
)

// lifecycle is a listener that runs until Shutdown is called.
type lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// namedServer pairs a listener with the name used in its errors.
type namedServer struct {
	name   string
	server lifecycle
}

// RunServer starts the API server, the metrics server, the retention scheduler and the rate
// limiter sweep. Blocks until SIGINT/SIGTERM or until one of them fails, then shuts the rest
// down gracefully.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	// Initializes every dependency, including the first key pair.
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	scheduler, err := container.RetentionScheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize retention scheduler: %w", err)
	}

	limiter := container.Limiter()

	servers := listeners(server, metricsServer)
	if metricsServer == nil {
		logger.Info("metrics disabled, metrics server not started")
	}

	tasks := []func(ctx context.Context) error{
		scheduler.Start,
		func(ctx context.Context) error {
			limiter.Run(ctx, limiterSweepPeriod)
			return nil
		},
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, logger, shutdownTimeout, servers, tasks)
}

// listeners returns the servers to run. A nil metrics server is left out rather than wrapped,
// since a nil pointer in the interface would not compare equal to nil.
func listeners(api lifecycle, metricsServer *http.MetricsServer) []namedServer {
	servers := []namedServer{{name: "api server", server: api}}
	if metricsServer != nil {
		servers = append(servers, namedServer{name: "metrics server", server: metricsServer})
	}
	return servers
}

// serve runs servers and tasks until ctx is done or one of them fails. Servers are then shut
// down within timeout; tasks are expected to return once their context is canceled.
func serve(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	servers []namedServer,
	tasks []func(ctx context.Context) error,
) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		g.Go(func() error {
			if err := s.server.Start(gctx); err != nil {
				return fmt.Errorf("%s error: %w", s.name, err)
			}
			return nil
		})
	}

	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		var shutdownErrors []error
		for _, s := range servers {
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("%s shutdown: %w", s.name, err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
