package repository

import (
	"context"

	"student-performance/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var predictionColumns = []string{
	"id", "user_id", "hours_studied", "attendance_rate", "assignments_completed", "result", "created_at",
}

type PredictionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPredictionRepository(db *pgxpool.Pool, logger *zap.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:     db,
		logger: logger,
	}
}

func insertPredictionQuery(p *models.Prediction) squirrel.InsertBuilder {
	return squirrel.Insert("predictions").
		Columns(predictionColumns...).
		Values(p.ID, p.UserID, p.HoursStudied, p.AttendanceRate, p.AssignmentsCompleted, string(p.Result), p.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)
}

func recentPredictionsQuery(userID uuid.UUID, limit int) squirrel.SelectBuilder {
	return squirrel.Select(predictionColumns...).
		From("predictions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "seq DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *PredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	sql, args, err := insertPredictionQuery(p).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		r.logger.Error("Failed to insert prediction",
			zap.String("prediction_id", p.ID.String()),
			zap.String("user_id", p.UserID.String()),
			zap.Error(err),
		)
		return translateError(err)
	}
	return nil
}

// ListRecentByUserID returns at most limit rows of the user, newest first.
func (r *PredictionRepository) ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Prediction, error) {
	sql, args, err := recentPredictionsQuery(userID, limit).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("Failed to query predictions", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	predictions := make([]*models.Prediction, 0, limit)
	for rows.Next() {
		var p models.Prediction
		var result string
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.HoursStudied, &p.AttendanceRate, &p.AssignmentsCompleted, &result, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Result = models.PredictionResult(result)
		predictions = append(predictions, &p)
	}

	return predictions, rows.Err()
}
