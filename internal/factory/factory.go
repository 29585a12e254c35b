package factory

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/api"
	"github.com/hoopstat/scorekeeper/internal/api/sse"
	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/backend/memory"
	"github.com/hoopstat/scorekeeper/internal/backend/rest"
	"github.com/hoopstat/scorekeeper/internal/config"
	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/dependencies/idgen"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/realtime"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/session"
	"github.com/hoopstat/scorekeeper/internal/storage"
	memstore "github.com/hoopstat/scorekeeper/internal/storage/memory"
	redisstorage "github.com/hoopstat/scorekeeper/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	Config config.Config
	Logger *slog.Logger

	// External dependencies
	Clock clock.Clock
	IDs   idgen.Generator

	// Backend is the remote system of record. MemoryBackend is set when the
	// in-process reference backend is used.
	Backend       backend.Backend
	MemoryBackend *memory.Backend
	Notifier      realtime.Notifier
	Cache         storage.SessionCache

	// Services
	AuthService *auth.Service
	Sessions    *session.Manager
	Streams     *sse.Registry

	Registry *prometheus.Registry

	closers []func() error
}

// New creates a new application with all dependencies wired from cfg
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	clk := clock.New()
	ids := idgen.New()

	var (
		be       backend.Backend
		memBE    *memory.Backend
		notifier realtime.Notifier
	)
	switch cfg.Backend.Type {
	case config.BackendMemory:
		memBE = memory.New(clk, ids, logger)
		if cfg.Backend.Seed {
			if err := SeedDemo(memBE, cfg.Game); err != nil {
				return nil, oops.In("factory").Code("SEED_FAILED").Wrap(err)
			}
		}
		be = memBE
		notifier = realtime.NewLoopback(logger)
	case config.BackendREST:
		be = rest.New(rest.Config{
			BaseURL:     cfg.Backend.URL,
			Timeout:     cfg.Backend.Timeout,
			ReadRetries: uint64(cfg.Backend.ReadRetries),
		}, logger)
		notifier = realtime.NewWebSocket(cfg.Backend.RealtimeURL, logger)
	default:
		return nil, oops.In("factory").
			Code("INVALID_CONFIG").
			With("backend.type", cfg.Backend.Type).
			Wrap(config.ErrInvalidConfig)
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		Clock:         clk,
		IDs:           ids,
		Backend:       be,
		MemoryBackend: memBE,
		Notifier:      notifier,
	}

	switch cfg.Cache.Type {
	case config.CacheMemory:
		app.Cache = memstore.New(clk, cfg.Cache.TTL)
	case config.CacheRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Cache.RedisURL
		redisCfg.SessionTTL = cfg.Cache.TTL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, oops.In("factory").Code("CACHE_UNAVAILABLE").Wrap(err)
		}
		app.Cache = redisStore
		app.closers = append(app.closers, redisStore.Close)
	default:
		return nil, oops.In("factory").
			Code("INVALID_CONFIG").
			With("cache.type", cfg.Cache.Type).
			Wrap(config.ErrInvalidConfig)
	}

	app.wireServices(auth.Config{SessionDuration: cfg.Auth.SessionDuration}, cfg.Clock.SyncQueue)
	return app, nil
}

// wireServices creates the services on top of the app's dependencies
func (a *App) wireServices(authCfg auth.Config, syncQueue int) {
	a.Registry = prometheus.NewRegistry()
	metrics.RegisterMetrics(a.Registry)
	a.Registry.MustRegister(collectors.NewGoCollector())
	a.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.Streams = sse.NewRegistry(a.Logger)
	a.AuthService = auth.New(a.Backend, a.Clock, authCfg, a.Logger)
	a.Sessions = session.NewManager(session.Dependencies{
		Games:       a.Backend,
		Permissions: a.Backend,
		Notifier:    a.Notifier,
		Cache:       a.Cache,
		Clock:       a.Clock,
		IDs:         a.IDs,
		Listener:    sse.NewBroadcaster(a.Streams, a.Logger),
		Logger:      a.Logger,
	}, session.Config{SyncQueueSize: syncQueue})

	// Logging out unmounts every game the user has open
	a.AuthService.OnLogout(func(ctx context.Context, s *auth.Session) {
		closed := a.Sessions.CloseAll(ctx, s.User.ID)
		a.Logger.Info("closed game sessions on logout",
			slog.String("user_id", string(s.User.ID)),
			slog.Int("closed", closed))
	})
}

// Router builds the local HTTP API
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		AuthService: a.AuthService,
		Sessions:    a.Sessions,
		Cache:       a.Cache,
		Streams:     a.Streams,
		Metrics:     promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
	})
}

// Close closes every open game session and releases external connections
func (a *App) Close(ctx context.Context) {
	a.Sessions.Shutdown(ctx)
	a.Streams.Close()
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errutil.LogWarn(a.Logger, "failed to close dependency", err)
		}
	}
}
