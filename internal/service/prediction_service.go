package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"student-performance/internal/cache"
	"student-performance/internal/dto"
	"student-performance/internal/metrics"
	"student-performance/internal/models"
	"student-performance/pkg/auth"
	"student-performance/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PredictionEventsChannel receives a message for every stored prediction.
const PredictionEventsChannel = "student_performance:predictions"

type PredictionStore interface {
	Create(ctx context.Context, p *models.Prediction) error
	ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Prediction, error)
}

type PredictionEvent struct {
	Event      string                       `json:"event"`
	UserID     string                       `json:"user_id"`
	Prediction dto.PredictionRecordResponse `json:"prediction"`
}

type PredictionService struct {
	store    PredictionStore
	cache    cache.Cache
	cfg      config.PredictConfig
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewPredictionService(
	store PredictionStore,
	c cache.Cache,
	cfg config.PredictConfig,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *PredictionService {
	return &PredictionService{
		store:    store,
		cache:    c,
		cfg:      cfg,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate turns the raw request into classifier input.
func (s *PredictionService) Validate(req *dto.PredictionRequest) (models.PredictionInput, error) {
	if req == nil {
		return models.PredictionInput{}, newValidationError("body", "request body is required")
	}
	if err := validateStruct(req); err != nil {
		return models.PredictionInput{}, err
	}

	in := models.PredictionInput{
		HoursStudied:         *req.HoursStudied,
		AttendanceRate:       *req.AttendanceRate,
		AssignmentsCompleted: *req.AssignmentsCompleted,
	}
	if math.IsInf(in.HoursStudied, 0) || math.IsNaN(in.HoursStudied) {
		return in, newValidationError("hours_studied", "hours_studied must be a finite number")
	}
	if in.AssignmentsCompleted > s.cfg.MaxAssignments {
		return in, newValidationError("assignments_completed",
			fmt.Sprintf("assignments_completed must be %d or less", s.cfg.MaxAssignments))
	}
	return in, nil
}

// Evaluate validates and classifies without touching the store.
func (s *PredictionService) Evaluate(ctx context.Context, req *dto.PredictionRequest) (models.PredictionInput, models.PredictionResult, error) {
	in, err := s.Validate(req)
	if err != nil {
		return in, "", err
	}

	if s.cfg.Delay > 0 {
		timer := time.NewTimer(s.cfg.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return in, "", ctx.Err()
		}
	}

	result := Classify(in)
	metrics.PredictionsClassified.WithLabelValues(string(result)).Inc()
	return in, result, nil
}

// Predict classifies and then tries to persist. Failing to persist does not
// fail the call: the label is returned with Saved=false and a warning.
func (s *PredictionService) Predict(ctx context.Context, identity *auth.Identity, req *dto.PredictionRequest) (*dto.PredictionResponse, error) {
	in, result, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.PredictionResponse{Result: string(result)}

	p, err := s.Record(ctx, identity, in, result)
	switch {
	case err == nil:
		record := toRecordResponse(p)
		resp.Saved = true
		resp.Prediction = &record
	case errors.Is(err, ErrAuthRequired):
		metrics.PredictionsNotStored.WithLabelValues("unauthenticated").Inc()
		resp.Warning = "Sign in to save predictions"
	default:
		metrics.PredictionsNotStored.WithLabelValues("persistence").Inc()
		s.logger.Warn("Prediction not saved", zap.Error(err))
		resp.Warning = "Prediction could not be saved"
	}

	return resp, nil
}

// Record appends one prediction for the signed-in user.
func (s *PredictionService) Record(ctx context.Context, identity *auth.Identity, in models.PredictionInput, result models.PredictionResult) (*models.Prediction, error) {
	if identity == nil {
		return nil, ErrAuthRequired
	}

	p := &models.Prediction{
		ID:                   uuid.New(),
		UserID:               identity.UserID,
		HoursStudied:         in.HoursStudied,
		AttendanceRate:       in.AttendanceRate,
		AssignmentsCompleted: in.AssignmentsCompleted,
		Result:               result,
		CreatedAt:            s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, &PersistenceError{Op: "record", Err: err}
	}
	metrics.PredictionsStored.Inc()

	// must happen before returning so the next Recent call sees the new row
	if err := s.invalidateHistory(ctx, identity.UserID); err != nil {
		s.logger.Error("Failed to invalidate prediction history",
			zap.String("user_id", identity.UserID.String()),
			zap.Error(err),
		)
	}

	event := PredictionEvent{
		Event:      "prediction.created",
		UserID:     identity.UserID.String(),
		Prediction: toRecordResponse(p),
	}
	if err := s.cache.Publish(ctx, PredictionEventsChannel, event); err != nil {
		s.logger.Warn("Failed to publish prediction event", zap.Error(err))
	}

	s.logger.Info("Prediction stored",
		zap.String("prediction_id", p.ID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.String("result", string(p.Result)),
	)

	return p, nil
}

// Recent returns up to limit predictions of the user, newest first. A limit
// outside 1..HistoryLimit falls back to HistoryLimit.
func (s *PredictionService) Recent(ctx context.Context, identity *auth.Identity, limit int) ([]*models.Prediction, error) {
	if identity == nil {
		return nil, ErrAuthRequired
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	// The generation is read before the store so a fill that races a Record
	// lands on a key nobody reads any more.
	key := historyKey(identity.UserID, s.historyGeneration(ctx, identity.UserID))

	var cached []*models.Prediction
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("History cache read failed", zap.Error(err))
	} else if found {
		metrics.HistoryCacheHits.Inc()
		return head(cached, limit), nil
	}
	metrics.HistoryCacheMisses.Inc()

	predictions, err := s.store.ListRecentByUserID(ctx, identity.UserID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, &PersistenceError{Op: "recent", Err: err}
	}

	if err := s.cache.Set(ctx, key, predictions, s.cacheTTL); err != nil {
		s.logger.Warn("History cache write failed", zap.Error(err))
	}

	return head(predictions, limit), nil
}

func (s *PredictionService) History(ctx context.Context, identity *auth.Identity, limit int) (*dto.PredictionHistoryResponse, error) {
	predictions, err := s.Recent(ctx, identity, limit)
	if err != nil {
		return nil, err
	}

	resp := &dto.PredictionHistoryResponse{
		Predictions: make([]dto.PredictionRecordResponse, 0, len(predictions)),
	}
	for _, p := range predictions {
		resp.Predictions = append(resp.Predictions, toRecordResponse(p))
	}
	resp.Count = len(resp.Predictions)
	return resp, nil
}

func historyKey(userID uuid.UUID, generation string) string {
	return "predictions:recent:" + userID.String() + ":" + generation
}

func historyGenerationKey(userID uuid.UUID) string {
	return "predictions:generation:" + userID.String()
}

// historyGeneration returns the current history generation of the user, or
// "0" before the first Record.
func (s *PredictionService) historyGeneration(ctx context.Context, userID uuid.UUID) string {
	var generation string
	found, err := s.cache.Get(ctx, historyGenerationKey(userID), &generation)
	if err != nil {
		s.logger.Warn("History generation read failed", zap.Error(err))
	}
	if err != nil || !found || generation == "" {
		return "0"
	}
	return generation
}

// invalidateHistory drops the cached list and moves the user to a fresh
// generation.
func (s *PredictionService) invalidateHistory(ctx context.Context, userID uuid.UUID) error {
	previous := s.historyGeneration(ctx, userID)
	if err := s.cache.Set(ctx, historyGenerationKey(userID), uuid.NewString(), 0); err != nil {
		return err
	}
	return s.cache.Delete(ctx, historyKey(userID, previous))
}

func head(predictions []*models.Prediction, limit int) []*models.Prediction {
	if len(predictions) > limit {
		return predictions[:limit]
	}
	if predictions == nil {
		return []*models.Prediction{}
	}
	return predictions
}

func toRecordResponse(p *models.Prediction) dto.PredictionRecordResponse {
	return dto.PredictionRecordResponse{
		ID:                   p.ID.String(),
		HoursStudied:         p.HoursStudied,
		AttendanceRate:       p.AttendanceRate,
		AssignmentsCompleted: p.AssignmentsCompleted,
		Result:               string(p.Result),
		CreatedAt:            p.CreatedAt.Format(time.RFC3339Nano),
	}
}
