package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"textvision/internal/adapter/repo"
	"textvision/internal/generation"
	"textvision/internal/http/handlers"
	httpapi "textvision/internal/http/httpapi"
	"textvision/internal/infra"
	"textvision/internal/infra/credentials"
	"textvision/internal/infra/geoip"
	"textvision/internal/infra/lease"
	"textvision/internal/infra/metrics"
	"textvision/internal/migrations"
	"textvision/internal/providers/volcano"
	"textvision/internal/storage"
)

const resumeGrace = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		if err := migrations.Up(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	creds := credentials.NewStore(sqlRunner)
	arkKey, err := creds.ResolveArkAPIKey(ctx, cfg.ArkAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("ark api key lookup failed")
	}
	if arkKey == "" {
		logger.Warn().Msg("no ark api key configured; generation jobs will fail")
	}
	provider, err := volcano.NewClient(volcano.Options{
		APIKey:         arkKey,
		BaseURL:        cfg.ArkBaseURL,
		ImageModel:     cfg.ArkImageModel,
		VideoModel:     cfg.ArkVideoModel,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build provider client")
	}

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	checks := map[string]handlers.Checker{"database": dbpool.Ping}
	var locker lease.Locker = lease.NewMemoryLocker()
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		locker = lease.NewRedisLocker(rdb, "textvision:")
		checks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, rdb) }
	}

	// Dispatch outlives request contexts; it stops with the process.
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	leaseTTL := cfg.PollInterval*time.Duration(cfg.PollMaxAttempts) + 2*cfg.ProviderTimeout
	dispatcher := generation.NewDispatcher(dispatchCtx, cfg.DispatchConcurrency, locker, leaseTTL, logger)

	orch, err := generation.NewOrchestrator(generation.Options{
		Jobs:         repo.NewJobRepository(sqlRunner),
		Templates:    repo.NewTemplateRepository(sqlRunner),
		Styles:       repo.NewStyleRepository(sqlRunner),
		OperationLog: repo.NewOperationLogRepository(sqlRunner),
		Provider:     provider,
		Assets:       files,
		Spawner:      dispatcher,
		Logger:       logger,
		DailyLimit:   cfg.DailyGenerationLimit,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.PollMaxAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	metrics.MustRegister()

	// Jobs younger than resumeGrace may still belong to a live instance
	// that has not taken their lease yet.
	resumed, err := orch.Resume(ctx, time.Now().Add(-resumeGrace))
	if err != nil {
		logger.Error().Err(err).Msg("resume interrupted jobs")
	} else if resumed > 0 {
		logger.Info().Int("jobs", resumed).Msg("resumed interrupted jobs")
	}

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer countries.Close()

	app := handlers.NewApp(orch, logger)
	app.Checks = checks
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  countries.Lookup(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitPerMin,
		Logger:         logger,
		Static:         files.Handler("/static"),
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
		}
		cancelDispatch()
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), generation.DrainTimeout)
		defer cancelDrain()
		if err := dispatcher.WaitContext(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("dispatch still running at shutdown")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
