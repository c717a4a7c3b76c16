package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/perfboard/internal/adapters/cache"
	"github.com/okian/perfboard/internal/adapters/repository"
	"github.com/okian/perfboard/internal/config"
	"github.com/okian/perfboard/internal/sampledata"
	"github.com/okian/perfboard/pkg/logger"
)

const (
	defaultDir       = "public"
	defaultSeed      = 1
	defaultTimeout   = 5 * time.Minute
	redisDialTimeout = 3 * time.Second
)

func main() {
	var (
		dir      = flag.String("dir", defaultDir, "Directory holding the source files")
		clearAll = flag.Bool("clear", false, "Remove every stored performance record before loading")
		generate = flag.Bool("generate", false, "Write synthetic fixtures into -dir before loading")
		seed     = flag.Uint64("seed", defaultSeed, "Seed for -generate")
		verbose  = flag.Bool("verbose", false, "Log every aggregated record")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		sampledata.ShowHelp()
		return
	}

	if err := sampledata.SetupLogging(os.Stderr, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := run(ctx, &sampledata.Config{
		Dir:      *dir,
		Clear:    *clearAll,
		Generate: *generate,
		Seed:     *seed,
		Verbose:  *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("Load failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, sc *sampledata.Config) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Get()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	store, err := repository.Open(ctx, cfg.DBPath,
		repository.WithLogger(log.Named("repository")),
		repository.WithLocation(loc),
	)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// The running server caches summaries; drop them after the write.
	var summaries cache.SummaryCache
	if cfg.RedisAddr != "" {
		dctx, dcancel := context.WithTimeout(ctx, redisDialTimeout)
		rc, err := cache.Dial(dctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		dcancel()
		if err != nil {
			log.Warn(ctx, "redis unavailable; cached summaries may be stale", logger.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			summaries = rc
		}
	}

	sc.Logger = log.Named("sampledata")
	_, err = sampledata.Run(ctx, sc, store, summaries, os.Stdout)
	return err
}
