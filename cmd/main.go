package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/okian/perfboard/internal/adapters/archive"
	"github.com/okian/perfboard/internal/adapters/cache"
	"github.com/okian/perfboard/internal/adapters/http/api"
	"github.com/okian/perfboard/internal/adapters/http/site"
	"github.com/okian/perfboard/internal/adapters/http/swagger"
	"github.com/okian/perfboard/internal/adapters/repository"
	app "github.com/okian/perfboard/internal/app"
	"github.com/okian/perfboard/internal/config"
	"github.com/okian/perfboard/pkg/logger"
	"github.com/okian/perfboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisDialTimeout          = 3 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("perfboard: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	deps, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(ctx, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           deps.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, deps.svc, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// components is the wired application.
type components struct {
	svc     *app.Service
	handler http.Handler
	closers []func() error
}

func (c *components) close(ctx context.Context, log logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// build opens storage, the optional cache and archive, and mounts every route.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*components, error) {
	c := &components{}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.DBPath,
		repository.WithLogger(log.Named("repository")),
		repository.WithLocation(loc),
	)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, store.Close)

	opts := []app.Option{
		app.WithStore(store),
		app.WithLogger(log.Named("service")),
		app.WithMaxUploadMB(cfg.MaxUploadMB),
		app.WithMaxBatchFiles(cfg.MaxBatchFiles),
		app.WithPageSizes(cfg.PageSize, cfg.MaxPageSize),
		app.WithStudentPageSize(cfg.StudentPageSize),
		app.WithRankingLimit(cfg.RankingLimit),
	}

	if cfg.RedisAddr != "" {
		dctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		rc, err := cache.Dial(dctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cache.WithTTL(cfg.SummaryCacheTTL()))
		cancel()
		if err != nil {
			// Summaries still work uncached.
			log.Warn(ctx, "redis unavailable; summary cache disabled", logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
		} else {
			opts = append(opts, app.WithCache(rc))
			c.closers = append(c.closers, rc.Close)
			log.Info(ctx, "summary cache enabled", logger.String("redis_addr", cfg.RedisAddr))
		}
	}

	if cfg.ArchivePath != "" {
		arch, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			c.close(ctx, log)
			return nil, err
		}
		opts = append(opts, app.WithArchive(arch))
		c.closers = append(c.closers, arch.Close)
	}

	svc, err := app.New(opts...)
	if err != nil {
		c.close(ctx, log)
		return nil, err
	}
	c.svc = svc

	root, err := site.FS(cfg.StaticDir)
	if err != nil {
		c.close(ctx, log)
		return nil, err
	}

	r := api.NewRouter(log)
	api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithUploadRateLimit(cfg.UploadRatePerSec, cfg.UploadBurst),
		api.WithUploadLimits(cfg.MaxUploadMB, cfg.MaxBatchFiles),
	).Register(r)
	swagger.Register(ctx, r)
	site.Register(ctx, r, root)
	c.handler = r

	logRoutes(ctx, r, log)
	return c, nil
}

func logRoutes(ctx context.Context, r chi.Routes, log logger.Logger) {
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug(ctx, "route", logger.String("method", method), logger.String("route", route))
		return nil
	})
}

// startSystemMetricsUpdater updates runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes record-count gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, log logger.Logger) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the record gauges as a side effect.
			if _, err := svc.GetStats(ctx); err != nil && ctx.Err() == nil {
				log.Warn(ctx, "stats refresh failed", logger.Error(err))
			}
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
