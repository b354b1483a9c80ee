package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"roster/internal/app"
	"roster/internal/platform/config"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/logger"
)

// main loads configuration, wires the registry, and keeps the server
// lifecycle small. Business logic lives in internal/member.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		log.Info(fmt.Sprintf(format, v...), "component", "maxprocs")
	})); err != nil {
		return fmt.Errorf("set GOMAXPROCS: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("close resources", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Addr, a.Handler())
	log.Info("starting roster",
		"addr", cfg.Addr,
		"store_backend", cfg.StoreBackend,
		"audit_kafka", len(cfg.KafkaBrokers) > 0,
	)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return serve(ctx, log, srv, ln, a, cfg.ShutdownTimeout)
}

type backgroundRunner interface {
	Run(ctx context.Context) error
}

// serve runs srv on ln alongside bg until ctx is done or either fails.
// bg is stopped only after srv has shut down, so events queued by
// in-flight requests reach its final drain.
func serve(ctx context.Context, log *slog.Logger, srv *http.Server, ln net.Listener, bg backgroundRunner, shutdownTimeout time.Duration) error {
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return bg.Run(workerCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopWorker()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
