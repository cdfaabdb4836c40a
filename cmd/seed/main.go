package main

import (
	"context"
	"errors"
	"log"
	"os"

	"student-performance/internal/cache"
	"student-performance/internal/dto"
	"student-performance/internal/repository"
	"student-performance/internal/service"
	"student-performance/pkg/auth"
	"student-performance/pkg/config"
	"student-performance/pkg/logger"
	"student-performance/pkg/postgres"

	"go.uber.org/zap"
)

// sampleInputs cover both sides of the Pass threshold.
var sampleInputs = []struct {
	hours       float64
	attendance  float64
	assignments int
}{
	{7.5, 85, 2},
	{3, 90, 3},
	{5, 75, 2},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Starting database seeding...")

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to apply schema", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, appLogger)
	predictionRepo := repository.NewPredictionRepository(db, appLogger)

	// Seeding through Redis keeps a running server's history cache in sync.
	c, err := openCache(ctx, cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open cache", zap.Error(err))
	}
	defer c.Close()

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)
	authService := service.NewAuthService(userRepo, jwtManager, auth.NewRevocationList(c), appLogger)
	predictionService := service.NewPredictionService(predictionRepo, c, cfg.Predict, cfg.Redis.CacheTTL, appLogger)

	identity, err := demoIdentity(ctx, authService, jwtManager, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to prepare demo user", zap.Error(err))
	}

	for _, sample := range sampleInputs {
		hours, attendance, assignments := sample.hours, sample.attendance, sample.assignments
		resp, err := predictionService.Predict(ctx, identity, &dto.PredictionRequest{
			HoursStudied:         &hours,
			AttendanceRate:       &attendance,
			AssignmentsCompleted: &assignments,
		})
		if err != nil {
			appLogger.Error("Failed to seed prediction", zap.Error(err))
			continue
		}
		if !resp.Saved {
			appLogger.Warn("Sample prediction was not stored", zap.String("warning", resp.Warning))
			continue
		}
		appLogger.Info("Seeded prediction",
			zap.Float64("hours_studied", hours),
			zap.Float64("attendance_rate", attendance),
			zap.Int("assignments_completed", assignments),
			zap.String("result", resp.Result),
		)
	}

	appLogger.Info("Database seeding completed successfully!")
}

// demoIdentity registers the demo account, or logs in when it already exists.
func demoIdentity(ctx context.Context, authService *service.AuthService, jwtManager *auth.JWTManager, log *zap.Logger) (*auth.Identity, error) {
	email := getEnv("SEED_EMAIL", "demo@example.com")
	password := getEnv("SEED_PASSWORD", "demo-password")

	resp, err := authService.Register(ctx, &dto.RegisterRequest{
		Username: getEnv("SEED_USERNAME", "demo"),
		Email:    email,
		Password: password,
	})
	if errors.Is(err, service.ErrUserExists) {
		log.Info("Demo user already exists", zap.String("email", email))
		resp, err = authService.Login(ctx, &dto.LoginRequest{Email: email, Password: password})
	}
	if err != nil {
		return nil, err
	}

	claims, err := jwtManager.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}
	return claims.Identity()
}

func openCache(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (cache.Cache, error) {
	if cfg.Enabled {
		return cache.NewRedisCache(ctx, cfg, log)
	}
	return cache.NewMemoryCache(cfg.MemoryEntries, log)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
