package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-performance/internal/api"
	"student-performance/internal/api/handlers"
	"student-performance/internal/cache"
	"student-performance/internal/repository"
	"student-performance/internal/repository/inmem"
	"student-performance/internal/service"
	"student-performance/pkg/auth"
	"student-performance/pkg/config"
	"student-performance/pkg/logger"
	"student-performance/pkg/postgres"

	"go.uber.org/zap"
)

// @title Student Performance API
// @version 1.0
// @description Pass/Fail prediction from study hours, attendance and completed assignments

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

type stores struct {
	users       service.UserStore
	predictions service.PredictionStore
	health      handlers.Pinger
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting student performance service",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	if cfg.JWT.UsesDefaultSecret() {
		appLogger.Warn("JWT_SECRET_KEY is not set, using the built-in development secret")
	}

	ctx := context.Background()

	db, err := openStores(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer db.close()

	c := openCache(ctx, cfg.Redis, appLogger)
	defer c.Close()

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)
	revocations := auth.NewRevocationList(c)

	authService := service.NewAuthService(db.users, jwtManager, revocations, appLogger)
	predictionService := service.NewPredictionService(db.predictions, c, cfg.Predict, cfg.Redis.CacheTTL, appLogger)

	app := api.SetupRouter(api.Handlers{
		Auth:       handlers.NewAuthHandler(authService, appLogger),
		Prediction: handlers.NewPredictionHandler(predictionService, appLogger),
		Health:     handlers.NewHealthHandler(db.health, appLogger),
	}, jwtManager, revocations, api.Options{
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
		AccessLog:        true,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
	}, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		db := inmem.Open()
		return &stores{
			users:       inmem.NewUserRepository(db),
			predictions: inmem.NewPredictionRepository(db),
			health:      db,
			close:       func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &stores{
		users:       repository.NewUserRepository(pool, log),
		predictions: repository.NewPredictionRepository(pool, log),
		health:      pool,
		close:       pool.Close,
	}, nil
}

// openCache prefers Redis and falls back to the in-process LRU when it is
// disabled or unreachable.
func openCache(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) cache.Cache {
	if cfg.Enabled {
		rc, err := cache.NewRedisCache(ctx, cfg, log)
		if err == nil {
			return rc
		}
		log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
	}

	mc, err := cache.NewMemoryCache(cfg.MemoryEntries, log)
	if err != nil {
		log.Fatal("Failed to create in-memory cache", zap.Error(err))
	}
	return mc
}
