package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"teampower/internal/backend"
	"teampower/internal/cache"
	"teampower/internal/cli"
	apphttp "teampower/internal/http"
	applog "teampower/internal/log"
	"teampower/internal/rollup"
	"teampower/internal/services"
	"teampower/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()

	var views cache.Cache[rollup.Views]
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr)
		if err != nil {
			logger.Error("Failed to connect to Redis", applog.FieldError, err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		defer rdb.Close()
		views = cache.NewRedisCache[rollup.Views](rdb, "teampower", cfg.ViewCacheTTL)
		logger.Info("Using Redis view cache", "addr", cfg.RedisAddr, "ttl", cfg.ViewCacheTTL)
	} else {
		lru := cache.NewLRUCache[rollup.Views](16, cfg.ViewCacheTTL)
		cacheManager.Register(lru)
		views = lru
	}

	dir := session.NewDirectory()
	if cfg.SeedUsers != "" {
		if err := dir.ParseSeed(cfg.SeedUsers); err != nil {
			logger.Error("Invalid SEED_USERS", applog.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Warn("No SEED_USERS configured, nobody can log in")
	}
	sessions := session.NewManager(dir, cfg.SessionTTL)
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(time.Minute)

	engine := rollup.NewEngine(rollup.NewWindow(cfg.ReportingYear))
	dashboard := services.NewDashboardService(result.Store, engine, views, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:             result.Ledger,
		Dashboard:          dashboard,
		Sessions:           sessions,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
		m := srv.Metrics()
		logger.Info("Request totals",
			"requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"avg_response", m.AverageResponseTime())
	})

	logger.Info("Starting teampower server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldYear, cfg.ReportingYear)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
