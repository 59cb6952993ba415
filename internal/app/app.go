package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/data/db"
	"github.com/yungbote/idmap-backend/internal/http"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *http.Server

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// OpenStore connects to the configured database driver.
func OpenStore(log *logger.Logger, cfg Config) (*db.Service, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		return db.NewSQLiteService(log, cfg.SQLitePath)
	case DriverPostgres, "":
		return db.NewPostgresService(log, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// initOTel is replaced in tests.
var initOTel = observability.InitOTel

// New opens the store, migrates it and wires every layer. Nothing listens
// until Run. A failed New flushes and stops tracing before returning.
func New(ctx context.Context, log *logger.Logger, cfg Config) (_ *App, err error) {
	otelShutdown := initOTel(ctx, log, cfg.Otel)
	defer func() {
		if err != nil {
			flushOTel(log, otelShutdown, cfg.ShutdownTimeout)
		}
	}()
	metrics := observability.Init(log)

	store, err := OpenStore(log, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := store.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, clientset, metrics)
	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background collectors and the metrics endpoint.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}
}

// Run serves HTTP on addr until ctx is cancelled or the listener fails, then
// flushes pending trace spans.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.ListenAndServe(gctx, addr, a.Cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		flushOTel(a.Log, a.otelShutdown, a.Cfg.ShutdownTimeout)
		return nil
	})
	return g.Wait()
}

// flushOTel is a no-op when tracing was never enabled.
func flushOTel(log *logger.Logger, shutdown func(context.Context) error, timeout time.Duration) {
	if shutdown == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil && log != nil {
		log.Warn("otel shutdown failed", "error", err)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.Log != nil {
			a.Log.Warn("store close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
