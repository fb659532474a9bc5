package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/config"
	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/routes"
	"github.com/MrSnakeDoc/dashsync/internal/kv"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/persist"
	"github.com/MrSnakeDoc/dashsync/internal/redis"
	"github.com/MrSnakeDoc/dashsync/internal/scheduler"
	"github.com/MrSnakeDoc/dashsync/internal/sources/seed"
	"github.com/MrSnakeDoc/dashsync/internal/store"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
	"github.com/MrSnakeDoc/dashsync/internal/utils"
	"github.com/MrSnakeDoc/dashsync/internal/version"
)

// App is the dashboard process: local API, persistence and sync.
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	kv        kv.Store
	store     *store.Store
	persist   *persist.Adapter
	sync      *syncer.Orchestrator
	snapshots *scheduler.SnapshotScheduler
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open local storage early - fail fast if unavailable
	loggerClient.Info("opening local storage", logger.String("dsn", cfg.StorageDSN))
	backend, err := kv.Open(cfg.StorageDSN, redis.Dialer(cfg.Redis.ConnectOptions(), loggerClient))
	if err != nil {
		loggerClient.Errorf("Failed to open local storage: %v", err)
		os.Exit(1)
	}

	st := store.New(time.Now)
	p := persist.New(backend, st, loggerClient,
		persist.WithDebounce(cfg.DebounceDelay),
		persist.OnSaveError(func(op string, err error) {
			// memory keeps the change; the next successful save catches up
			loggerClient.Warn("local save failed", logger.String("op", op), logger.Error(err))
		}))

	orch := syncer.New(st, p, newFactory(cfg, loggerClient), loggerClient,
		syncer.WithInterval(domain.ProviderHTTPServer, cfg.HTTPServerSyncInterval),
		syncer.WithInterval(domain.ProviderCloudDrive, cfg.CloudDriveSyncInterval))

	snapshots := scheduler.NewSnapshotScheduler(p, loggerClient, cfg.SnapshotInterval)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		CORSOrigins:  cfg.CORSOrigins,
		Store:        st,
		Persist:      p,
		Sync:         orch,
	}

	server := httpserver.New(httpserver.Options{
		Addr:           cfg.ListenPort,
		RequestTimeout: cfg.RequestTimeout,
	}, routes.Dashboard, loggerClient, d)

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    server,
		kv:        backend,
		store:     st,
		persist:   p,
		sync:      orch,
		snapshots: snapshots,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting dashsync v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("dashsync %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.startSync(ctx); err != nil {
		a.logger.Warn("remote sync unavailable, running local-only", logger.Error(err))
	}

	origin, err := a.sync.Load(ctx)
	if err != nil {
		// Nothing readable locally: start empty rather than refuse to serve
		a.logger.Error("failed to load local data, starting empty", logger.Error(err))
	}
	counts := a.store.Count()
	a.logger.Info("data loaded",
		logger.String("origin", string(origin)),
		logger.Int("bookmarks", counts[domain.KindBookmarks]),
		logger.Int("notes", counts[domain.KindNotes]),
		logger.Int("todos", counts[domain.KindTodos]))

	if a.cfg.Seed {
		a.seed(ctx)
	}

	a.snapshots.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}

	// Pending edits first, then the emergency snapshot of the final state
	a.persist.Close()
	if err := a.snapshots.Stop(shutdownCtx); err != nil {
		a.logger.Warn("final snapshot not written", logger.Error(err))
	}
	a.sync.Close()
	utils.MustClose(a.logger, "local storage", a.kv)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ dashsync stopped cleanly")
	return nil
}

// startSync resumes the provider of the previous run. When none was left
// enabled, the configured provider (if any) is enabled instead.
func (a *App) startSync(ctx context.Context) error {
	prev, err := a.persist.LoadSyncState(ctx)
	if err != nil {
		return err
	}
	if !prev.Enabled && a.cfg.SyncProvider != domain.ProviderNone {
		a.logger.Info("enabling configured sync provider",
			logger.String("provider", string(a.cfg.SyncProvider)))
		return a.sync.Enable(ctx, a.cfg.SyncProvider)
	}
	return a.sync.Resume(ctx)
}

// seed fills a dashboard that has no data at all.
func (a *App) seed(ctx context.Context) {
	counts := a.store.Count()
	if counts[domain.KindBookmarks]+counts[domain.KindNotes]+counts[domain.KindTodos] > 0 {
		return
	}
	cfg, err := seed.NewLoader(a.cfg.SeedFile).Load()
	if err != nil {
		a.logger.Warn("seed file unreadable, starting empty", logger.Error(err))
		return
	}
	res, err := seed.Apply(a.store, cfg)
	if err != nil {
		a.logger.Warn("some seed entries were skipped", logger.Error(err))
	}
	if len(res.Kinds()) == 0 {
		return
	}
	if err := a.persist.PersistAll(ctx); err != nil {
		a.logger.Warn("seeded data not saved", logger.Error(err))
	}
	a.logger.Info("seeded sample data",
		logger.Int("bookmarks", res[domain.KindBookmarks]),
		logger.Int("notes", res[domain.KindNotes]),
		logger.Int("todos", res[domain.KindTodos]))
}
