package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"insightforge/adapters/api"
	"insightforge/adapters/cache"
	"insightforge/adapters/excel"
	"insightforge/adapters/postgres"
	"insightforge/adapters/stats/engine"
	"insightforge/app"
	"insightforge/internal"
	"insightforge/internal/config"
	"insightforge/internal/errors"
	"insightforge/internal/metrics"
	"insightforge/internal/migration"
	"insightforge/internal/ops"
	"insightforge/ports"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// initDatabase connects and migrates the snapshot store
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

// initCache prefers redis when an address is configured
func initCache(ctx context.Context, cfg config.CacheConfig, logger *internal.Logger) (ports.ResultCache, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process result cache (ttl %s)", cfg.TTL)
		return cache.NewMemory(cfg.TTL), nil, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis result cache at %s (ttl %s)", cfg.RedisAddr, cfg.TTL)
	return cache.NewRedis(client, cfg.TTL), client, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]ops.Check{}

	var repo ports.AnalysisRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(ctx, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewAnalysisRepository(db)
		checks["database"] = db.PingContext
		logger.Info("storing analysis snapshots in %s", appConfig.Database.Driver)
	} else {
		logger.Warn("DATABASE_URL not set, analyses will not be stored")
	}

	resultCache, redisClient, err := initCache(ctx, appConfig.Cache, logger)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	scheduler := ops.NewScheduler(logger)
	if mem, ok := resultCache.(*cache.MemoryCache); ok && appConfig.Cache.TTL > 0 {
		err := scheduler.Add("cache-purge", appConfig.Cache.PurgeSchedule, func() {
			if n := mem.Purge(); n > 0 {
				logger.Debug("purged %d expired cache entries", n)
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule cache purge: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	service := app.NewAnalysisService(
		engine.New(logger),
		resultCache,
		repo,
		m,
		logger,
		app.ServiceConfigFrom(appConfig.Analysis),
	)
	defer service.Close()

	handler := api.NewHandler(
		service,
		excel.NewDataReader(excel.DefaultReaderConfig(), logger),
		api.HandlerConfig{
			Defaults:        app.DefaultOptions(appConfig.Analysis),
			ForecastHorizon: appConfig.Analysis.ForecastHorizon,
			MaxUploadBytes:  appConfig.Server.MaxUploadMB << 20,
		},
		m,
		logger,
	)

	gin.SetMode(appConfig.Server.GinMode)
	server := &http.Server{
		Addr:        ":" + appConfig.Server.Port,
		Handler:     api.NewRouter(handler),
		ReadTimeout: appConfig.Server.ReadTimeout,
	}

	var opsServer *ops.Server
	if appConfig.Ops.Enabled {
		opsServer = ops.NewServer(m, checks, appConfig.Ops.CORSOrigins, logger)
		go func() {
			if err := opsServer.Start(":" + appConfig.Ops.Port); err != nil {
				logger.Error("ops server failed: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("🚀 Starting InsightForge API on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown: %v", err)
	}
	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops shutdown: %v", err)
		}
	}
}
