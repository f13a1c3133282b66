// Package app assembles the gift-exchange services from configuration. Both
// the HTTP server and the CLI build their dependencies through New.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	exchangeHandler "giftexchange/internal/exchange/handler"
	"giftexchange/internal/exchange/lock"
	exchangeMetrics "giftexchange/internal/exchange/metrics"
	exchangeService "giftexchange/internal/exchange/service"
	"giftexchange/internal/exchange/store/cycle"
	"giftexchange/internal/pairing"
	"giftexchange/internal/platform/config"
	"giftexchange/internal/platform/database"
	"giftexchange/internal/platform/httpserver"
	platformMetrics "giftexchange/internal/platform/metrics"
	platformRedis "giftexchange/internal/platform/redis"
	"giftexchange/internal/platform/tracing"
	"giftexchange/internal/roster"
	rosterMetrics "giftexchange/internal/roster/metrics"
	rosterService "giftexchange/internal/roster/service"
	"giftexchange/internal/roster/store/member"
	httptransport "giftexchange/internal/transport/http"
	audit "giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/audit/publisher"
	"giftexchange/pkg/platform/audit/publishers/kafka"
	auditmemory "giftexchange/pkg/platform/audit/store/memory"
	auditpostgres "giftexchange/pkg/platform/audit/store/postgres"
	auditsqlite "giftexchange/pkg/platform/audit/store/sqlite"
	"giftexchange/pkg/platform/tx"
)

// App holds the wired services and the resources they own.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	Roster   *rosterService.Service
	Exchange *exchangeService.Service
	Audit    *publisher.Publisher

	httpMetrics *platformMetrics.Metrics

	db       *sql.DB
	redis    *platformRedis.Client
	kafka    *kafka.Publisher
	shutdown tracing.Shutdown
}

type stores struct {
	members rosterService.Store
	cycles  exchangeService.CycleStore
	audit   audit.Store
}

// New opens the configured backends and builds the services on top of them.
// Callers must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *App, err error) {
	a = &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.httpMetrics = platformMetrics.New(a.Registry)

	a.shutdown, err = tracing.Setup(cfg.TracingStdout, os.Stderr)
	if err != nil {
		return a, err
	}

	s, err := a.openStores(ctx)
	if err != nil {
		return a, err
	}

	auditOpts := []publisher.Option{
		publisher.WithLogger(logger),
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		a.kafka, err = kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return a, err
		}
		if err = a.kafka.EnsureTopic(ctx, 1, 1); err != nil {
			return a, err
		}
		auditOpts = append(auditOpts, publisher.WithSink(a.kafka))
		logger.InfoContext(ctx, "audit events forwarded to kafka", "topic", cfg.Kafka.Topic)
	}
	a.Audit = publisher.NewPublisher(s.audit, auditOpts...)

	var locker lock.Locker = lock.NewLocal()
	a.redis, err = platformRedis.New(ctx, cfg.Redis)
	if err != nil {
		return a, err
	}
	if a.redis != nil {
		locker = lock.NewRedis(a.redis.Client, lock.WithTTL(cfg.Redis.LockTTL))
		logger.InfoContext(ctx, "using redis generation lock")
	}

	a.Roster = roster.NewService(s.members,
		rosterService.WithLogger(logger),
		rosterService.WithAuditPublisher(a.Audit),
		rosterService.WithMetrics(rosterMetrics.New(a.Registry)),
	)

	engine := pairing.New(
		pairing.WithMinRoster(cfg.MinRoster),
		pairing.WithHistoryDepth(cfg.HistoryDepth),
	)
	logger.DebugContext(ctx, "pairing engine ready",
		"min_roster", engine.MinRoster(),
		"history_depth", engine.HistoryDepth(),
	)
	a.Exchange = exchangeService.New(s.cycles, a.Roster, engine,
		exchangeService.WithLogger(logger),
		exchangeService.WithAuditPublisher(a.Audit),
		exchangeService.WithMetrics(exchangeMetrics.New(a.Registry)),
		exchangeService.WithLocker(locker),
		exchangeService.WithMaxAttempts(cfg.MaxAttempts),
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	var err error
	switch a.Config.Store {
	case config.StoreMemory:
		return stores{
			members: member.NewInMemory(),
			cycles:  cycle.NewInMemory(),
			audit:   auditmemory.NewInMemoryStore(),
		}, nil
	case config.StoreSQLite:
		a.db, err = database.OpenSQLite(ctx, a.Config.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{
			members: member.NewSQLite(a.db),
			cycles:  cycle.NewSQLite(a.db),
			audit:   auditsqlite.New(a.db),
		}, nil
	case config.StorePostgres:
		a.db, err = database.OpenPostgres(ctx, a.Config.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		return stores{
			members: member.NewPostgres(a.db),
			cycles:  cycle.NewPostgres(a.db),
			audit:   auditpostgres.New(a.db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store %q", a.Config.Store)
	}
}

// RunInTx runs fn inside one database transaction when a SQL store is
// configured. With the memory store fn runs directly.
func (a *App) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.db == nil {
		return fn(ctx)
	}
	return tx.Run(ctx, a.db, fn)
}

// Router builds the HTTP handler serving every module.
func (a *App) Router() http.Handler {
	health := map[string]httptransport.HealthCheck{}
	if a.db != nil {
		health["database"] = a.db.PingContext
	}
	if a.redis != nil {
		health["redis"] = a.redis.Health
	}
	if a.kafka != nil {
		health["kafka"] = a.kafka.Ping
	}
	return httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   a.Logger,
		Metrics:  a.httpMetrics,
		Gatherer: a.Registry,
		Handlers: []httptransport.Registrar{
			roster.NewHandler(a.Roster, a.Logger),
			exchangeHandler.New(a.Exchange, a.Logger),
		},
		Health: health,
	})
}

// Close drains the audit queue, then releases every backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Audit != nil {
		a.Audit.Close()
	}
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := httpserver.New(a.Config.Addr, a.Router())
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "starting giftexchange", "addr", a.Config.Addr, "store", a.Config.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		a.Logger.Info("shutting down", "timeout", a.Config.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	return err
}
