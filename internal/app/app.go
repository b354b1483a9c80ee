// Package app is the composition root: it turns a Config into a running
// member registry with its substrate, search engine, audit pipeline, and
// HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roster/internal/audit"
	"roster/internal/docstore"
	"roster/internal/docstore/badger"
	"roster/internal/docstore/memory"
	"roster/internal/docstore/postgres"
	rosterredis "roster/internal/docstore/redis"
	"roster/internal/member/handler"
	membermetrics "roster/internal/member/metrics"
	"roster/internal/member/search"
	"roster/internal/member/service"
	"roster/internal/member/store"
	"roster/internal/platform/config"
	"roster/internal/platform/metrics"
	redisclient "roster/internal/platform/redis"
	"roster/internal/platform/tracing"
	"roster/pkg/platform/httputil"
)

const (
	auditQueueSize      = 1024
	auditTopicReplicas  = 1
	healthTimeout       = 2 * time.Second
	tracingFlushTimeout = 5 * time.Second
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Store    *store.Store
	Engine   *search.Engine
	Service  *service.Service

	router      chi.Router
	auditWorker *audit.Worker
	closers     []func() error
}

// New wires every component described by cfg. Network backends are dialled
// and verified here, so a bad DSN fails startup rather than the first request.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		return shutdownTracing(ctx)
	})

	substrate, err := OpenSubstrate(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, substrate.Close)

	memberMetrics := membermetrics.New(a.Registry)
	a.Store = store.New(substrate)
	a.Engine = search.New(a.Store,
		search.WithLogger(logger),
		search.WithMetrics(memberMetrics),
		search.WithTracerProvider(tp),
	)

	publisher, err := a.auditPublisher(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Service, err = service.New(a.Store, a.Engine,
		service.WithLogger(logger),
		service.WithMetrics(memberMetrics),
		service.WithAuditPublisher(publisher),
		service.WithRequireLocation(cfg.RequireLocation),
		service.WithSearchTimeout(cfg.SearchTimeout),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.router = a.newRouter(metrics.New(a.Registry))
	return a, nil
}

// OpenSubstrate builds the document substrate selected by cfg.StoreBackend.
// The postgres schema is migrated on open.
func OpenSubstrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Substrate, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		return memory.New(), nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := postgres.New(db)
		if err := s.Migrate(ctx, store.IndexedFields...); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate member documents: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return rosterredis.New(client), nil
	case config.BackendBadger:
		return badger.Open(badger.WithDataDir(cfg.BadgerDir), badger.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// auditPublisher always logs events. When brokers are configured, events
// are also queued for a background Kafka producer.
func (a *App) auditPublisher(ctx context.Context) (*audit.Publisher, error) {
	sinks := audit.FanOut{audit.NewLogSink(a.Logger)}
	if len(a.Config.KafkaBrokers) == 0 {
		return audit.NewPublisher(sinks), nil
	}

	kafka, err := audit.NewKafkaSink(a.Config.KafkaBrokers, a.Config.AuditTopic)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		kafka.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, 1, auditTopicReplicas); err != nil {
		a.Logger.WarnContext(ctx, "could not ensure audit topic",
			"topic", a.Config.AuditTopic,
			"error", err,
		)
	}

	queue := audit.NewQueue(auditQueueSize)
	a.auditWorker = audit.NewWorker(kafka, queue.Inbox(), a.Logger,
		audit.WithDrainTimeout(a.Config.ShutdownTimeout),
	)
	sinks = append(sinks, queue)
	return audit.NewPublisher(sinks), nil
}

func (a *App) newRouter(httpMetrics *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	handler.New(a.Service, a.Logger, httpMetrics).Register(r)
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Logger.WarnContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run blocks running background workers until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.auditWorker == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases every resource opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
