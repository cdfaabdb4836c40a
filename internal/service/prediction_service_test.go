package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"student-performance/internal/cache"
	"student-performance/internal/dto"
	"student-performance/internal/metrics"
	"student-performance/internal/models"
	"student-performance/internal/repository/inmem"
	"student-performance/pkg/auth"
	"student-performance/pkg/config"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStore wraps the in-memory store and fails on demand.
type flakyStore struct {
	PredictionStore
	mu   sync.Mutex
	fail bool
}

var errStoreDown = errors.New("store unreachable")

func (s *flakyStore) setFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *flakyStore) failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *flakyStore) Create(ctx context.Context, p *models.Prediction) error {
	if s.failing() {
		return errStoreDown
	}
	return s.PredictionStore.Create(ctx, p)
}

func (s *flakyStore) ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Prediction, error) {
	if s.failing() {
		return nil, errStoreDown
	}
	return s.PredictionStore.ListRecentByUserID(ctx, userID, limit)
}

type fixture struct {
	svc      *PredictionService
	store    *flakyStore
	identity *auth.Identity
}

func defaultPredictConfig() config.PredictConfig {
	return config.PredictConfig{MaxAssignments: 3, HistoryLimit: 5}
}

func newFixture(t *testing.T, cfg config.PredictConfig) *fixture {
	t.Helper()
	db := inmem.Open()
	users := inmem.NewUserRepository(db)

	now := time.Now().UTC()
	usr := &models.User{ID: uuid.New(), Username: "ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(context.Background(), usr))

	c, err := cache.NewMemoryCache(64, zap.NewNop())
	require.NoError(t, err)

	store := &flakyStore{PredictionStore: inmem.NewPredictionRepository(db)}
	svc := NewPredictionService(store, c, cfg, time.Minute, zap.NewNop())

	// strictly increasing timestamps keep ordering deterministic
	clock := now
	svc.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	return &fixture{
		svc:      svc,
		store:    store,
		identity: &auth.Identity{UserID: usr.ID, Username: usr.Username, Email: usr.Email},
	}
}

func request(hours, attendance float64, assignments int) *dto.PredictionRequest {
	return &dto.PredictionRequest{
		HoursStudied:         &hours,
		AttendanceRate:       &attendance,
		AssignmentsCompleted: &assignments,
	}
}

func TestPredictPassIsStoredAndShownFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	resp, err := f.svc.Predict(ctx, f.identity, request(7.5, 85, 2))
	require.NoError(t, err)
	assert.Equal(t, "Pass", resp.Result)
	assert.True(t, resp.Saved)
	assert.Empty(t, resp.Warning)
	require.NotNil(t, resp.Prediction)

	history, err := f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, resp.Prediction.ID, history[0].ID.String())
	assert.Equal(t, models.ResultPass, history[0].Result)
	assert.Equal(t, 7.5, history[0].HoursStudied)
}

func TestPredictFailIsStoredWithFailResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	resp, err := f.svc.Predict(ctx, f.identity, request(3, 90, 3))
	require.NoError(t, err)
	assert.Equal(t, "Fail", resp.Result)
	assert.True(t, resp.Saved)

	history, err := f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ResultFail, history[0].Result)
}

func TestPredictWhenStoreUnavailableStillReturnsLabel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	before := testutil.ToFloat64(metrics.PredictionsNotStored.WithLabelValues("persistence"))

	f.store.setFailing(true)
	resp, err := f.svc.Predict(ctx, f.identity, request(7.5, 85, 2))
	require.NoError(t, err)
	assert.Equal(t, "Pass", resp.Result)
	assert.False(t, resp.Saved)
	assert.NotEmpty(t, resp.Warning)
	assert.Nil(t, resp.Prediction)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PredictionsNotStored.WithLabelValues("persistence")))

	f.store.setFailing(false)
	history, err := f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPredictWithoutIdentityIsNotSaved(t *testing.T) {
	f := newFixture(t, defaultPredictConfig())

	resp, err := f.svc.Predict(context.Background(), nil, request(5, 75, 2))
	require.NoError(t, err)
	assert.Equal(t, "Pass", resp.Result)
	assert.False(t, resp.Saved)
	assert.Equal(t, "Sign in to save predictions", resp.Warning)
}

func TestRecordErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())
	in := models.PredictionInput{HoursStudied: 6, AttendanceRate: 80, AssignmentsCompleted: 2}

	_, err := f.svc.Record(ctx, nil, in, models.ResultPass)
	assert.ErrorIs(t, err, ErrAuthRequired)

	f.store.setFailing(true)
	_, err = f.svc.Record(ctx, f.identity, in, models.ResultPass)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "record", perr.Op)
	assert.ErrorIs(t, err, errStoreDown)

	// unknown owner is a constraint failure
	f.store.setFailing(false)
	ghost := &auth.Identity{UserID: uuid.New()}
	_, err = f.svc.Record(ctx, ghost, in, models.ResultPass)
	assert.ErrorAs(t, err, &perr)
}

func TestRecentIsCappedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	for i := 0; i < 8; i++ {
		_, err := f.svc.Predict(ctx, f.identity, request(float64(i), 80, 2))
		require.NoError(t, err)
	}

	for _, limit := range []int{0, 5, 6, 100, -1} {
		history, err := f.svc.Recent(ctx, f.identity, limit)
		require.NoError(t, err)
		require.Len(t, history, 5, "limit %d", limit)
		for i := 1; i < len(history); i++ {
			assert.True(t, history[i-1].CreatedAt.After(history[i].CreatedAt))
		}
		assert.Equal(t, 7.0, history[0].HoursStudied)
	}

	history, err := f.svc.Recent(ctx, f.identity, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 7.0, history[0].HoursStudied)
	assert.Equal(t, 6.0, history[1].HoursStudied)
}

func TestRecordInvalidatesCachedHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	_, err := f.svc.Predict(ctx, f.identity, request(1, 50, 0))
	require.NoError(t, err)

	// warm the cache
	_, err = f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	hits := testutil.ToFloat64(metrics.HistoryCacheHits)
	_, err = f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.HistoryCacheHits))

	resp, err := f.svc.Predict(ctx, f.identity, request(9, 95, 3))
	require.NoError(t, err)

	history, err := f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, resp.Prediction.ID, history[0].ID.String())
}

func TestRecentRequiresIdentityAndSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	_, err := f.svc.Recent(ctx, nil, 5)
	assert.ErrorIs(t, err, ErrAuthRequired)

	f.store.setFailing(true)
	_, err = f.svc.Recent(ctx, f.identity, 5)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "recent", perr.Op)
}

func TestHistoryResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	empty, err := f.svc.History(ctx, f.identity, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Predictions)

	_, err = f.svc.Predict(ctx, f.identity, request(7.5, 85, 2))
	require.NoError(t, err)

	// cache holds the empty list until the record invalidates it
	history, err := f.svc.History(ctx, f.identity, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Count)
	assert.Equal(t, "Pass", history.Predictions[0].Result)
}

func TestValidate(t *testing.T) {
	f := newFixture(t, defaultPredictConfig())
	negative := -1.0

	tests := []struct {
		name  string
		req   *dto.PredictionRequest
		field string
	}{
		{"nil body", nil, "body"},
		{"missing hours", &dto.PredictionRequest{AttendanceRate: request(0, 80, 2).AttendanceRate, AssignmentsCompleted: request(0, 80, 2).AssignmentsCompleted}, "hours_studied"},
		{"negative hours", &dto.PredictionRequest{HoursStudied: &negative, AttendanceRate: request(0, 80, 2).AttendanceRate, AssignmentsCompleted: request(0, 80, 2).AssignmentsCompleted}, "hours_studied"},
		{"attendance above 100", request(5, 100.5, 2), "attendance_rate"},
		{"attendance below 0", request(5, -0.1, 2), "attendance_rate"},
		{"negative assignments", request(5, 80, -1), "assignments_completed"},
		{"assignments above max", request(5, 80, 4), "assignments_completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Validate(tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	in, err := f.svc.Validate(request(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, models.PredictionInput{}, in)
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	f := newFixture(t, defaultPredictConfig())

	_, err := f.svc.Validate(&dto.PredictionRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.Equal(t, "hours_studied is a required field", verr.Fields["hours_studied"])
}

func TestMaxAssignmentsIsConfigurable(t *testing.T) {
	cfg := defaultPredictConfig()
	cfg.MaxAssignments = 10
	f := newFixture(t, cfg)

	in, err := f.svc.Validate(request(5, 80, 7))
	require.NoError(t, err)
	assert.Equal(t, 7, in.AssignmentsCompleted)
}

func TestEvaluateHonoursDelayAndCancellation(t *testing.T) {
	cfg := defaultPredictConfig()
	cfg.Delay = time.Hour
	f := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.svc.Evaluate(ctx, request(7.5, 85, 2))
	assert.ErrorIs(t, err, context.Canceled)

	cfg.Delay = 10 * time.Millisecond
	f = newFixture(t, cfg)
	started := time.Now()
	_, result, err := f.svc.Evaluate(context.Background(), request(7.5, 85, 2))
	require.NoError(t, err)
	assert.Equal(t, models.ResultPass, result)
	assert.GreaterOrEqual(t, time.Since(started), 10*time.Millisecond)
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())
}

// pausingStore reads from the wrapped store, then holds the result until
// release is closed.
type pausingStore struct {
	PredictionStore
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Prediction, error) {
	predictions, err := s.PredictionStore.ListRecentByUserID(ctx, userID, limit)
	close(s.read)
	<-s.release
	return predictions, err
}

func TestRecentFillRacingRecordDoesNotHideNewRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	paused := &pausingStore{
		PredictionStore: f.store,
		read:            make(chan struct{}),
		release:         make(chan struct{}),
	}
	f.svc.store = paused

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Recent(ctx, f.identity, 5)
		done <- err
	}()
	<-paused.read

	// the stale read above is now waiting to fill the cache
	f.svc.store = f.store
	resp, err := f.svc.Predict(ctx, f.identity, request(7.5, 85, 2))
	require.NoError(t, err)
	require.True(t, resp.Saved)

	close(paused.release)
	require.NoError(t, <-done)

	history, err := f.svc.Recent(ctx, f.identity, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, resp.Prediction.ID, history[0].ID.String())
}

func TestRecordTruncatesToStoredPrecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultPredictConfig())

	p, err := f.svc.Record(ctx, f.identity, models.PredictionInput{HoursStudied: 6, AttendanceRate: 80, AssignmentsCompleted: 2}, models.ResultPass)
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt.Truncate(time.Microsecond), p.CreatedAt)
	assert.Equal(t, 0, p.CreatedAt.Nanosecond()%1000)
}
