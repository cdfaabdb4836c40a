package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Schema creates the tables used by the service. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		username   TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id                    UUID PRIMARY KEY,
		user_id               UUID NOT NULL REFERENCES users(id),
		hours_studied         DOUBLE PRECISION NOT NULL CHECK (hours_studied >= 0),
		attendance_rate       DOUBLE PRECISION NOT NULL CHECK (attendance_rate BETWEEN 0 AND 100),
		assignments_completed INTEGER NOT NULL CHECK (assignments_completed >= 0),
		result                TEXT NOT NULL CHECK (result IN ('Pass', 'Fail')),
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		seq                   BIGSERIAL
	)`,
	// seq orders rows that share a created_at by insertion
	`ALTER TABLE predictions ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
	`DROP INDEX IF EXISTS predictions_user_created_idx`,
	`CREATE INDEX IF NOT EXISTS predictions_user_recent_idx
		ON predictions (user_id, created_at DESC, seq DESC)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	logger.Info("Database schema is up to date", zap.Int("statements", len(Schema)))
	return nil
}
