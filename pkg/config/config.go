package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultJWTSecret = "your-secret-key-change-in-production"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Predict  PredictConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level      string
	File       string // optional rotating file sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ServerConfig struct {
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins string
}

type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns the libpq style connection string used by pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// UsesDefaultSecret reports whether the signing key was left at its placeholder.
func (j JWTConfig) UsesDefaultSecret() bool {
	return j.SecretKey == defaultJWTSecret
}

type RedisConfig struct {
	Enabled         bool
	Addr            string
	Password        string
	DB              int
	ConnectAttempts int
	CacheTTL        time.Duration
	MemoryEntries   int // size of the in-process fallback cache
}

type PredictConfig struct {
	MaxAssignments int
	Delay          time.Duration
	HistoryLimit   int
}

func Load() (*Config, error) {
	// .env is optional, plain environment variables work the same way
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisAttempts, _ := strconv.Atoi(getEnv("REDIS_CONNECT_ATTEMPTS", "3"))
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "60"))
	memoryEntries, _ := strconv.Atoi(getEnv("CACHE_MEMORY_ENTRIES", "1024"))
	logMaxSize, _ := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "100"))
	logMaxBackups, _ := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "3"))
	logMaxAge, _ := strconv.Atoi(getEnv("LOG_MAX_AGE_DAYS", "28"))

	maxAssignments, err := getIntEnv("PREDICT_MAX_ASSIGNMENTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICT_MAX_ASSIGNMENTS: %w", err)
	}
	if maxAssignments < 0 {
		return nil, fmt.Errorf("invalid PREDICT_MAX_ASSIGNMENTS: must not be negative")
	}
	delayMS, err := getIntEnv("PREDICT_DELAY_MS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICT_DELAY_MS: %w", err)
	}
	historyLimit, err := getIntEnv("PREDICT_HISTORY_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICT_HISTORY_LIMIT: %w", err)
	}
	if historyLimit < 1 || historyLimit > 5 {
		return nil, fmt.Errorf("invalid PREDICT_HISTORY_LIMIT: must be between 1 and 5")
	}

	driver := getEnv("DB_DRIVER", DriverPostgres)
	if driver != DriverPostgres && driver != DriverMemory {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "8080"),
			ReadTimeout:      time.Duration(readTimeout) * time.Second,
			WriteTimeout:     time.Duration(writeTimeout) * time.Second,
			CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:      driver,
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "student_performance"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnv("DB_AUTO_MIGRATE", "false") == "true",
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", defaultJWTSecret),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Redis: RedisConfig{
			Enabled:         getEnv("REDIS_ENABLED", "false") == "true",
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              redisDB,
			ConnectAttempts: redisAttempts,
			CacheTTL:        time.Duration(cacheTTL) * time.Second,
			MemoryEntries:   memoryEntries,
		},
		Predict: PredictConfig{
			MaxAssignments: maxAssignments,
			Delay:          time.Duration(delayMS) * time.Millisecond,
			HistoryLimit:   historyLimit,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  logMaxSize,
			MaxBackups: logMaxBackups,
			MaxAgeDays: logMaxAge,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
