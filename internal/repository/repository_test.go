package repository

import (
	"fmt"
	"testing"
	"time"

	"student-performance/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentPredictionsQuery(t *testing.T) {
	userID := uuid.New()

	sql, args, err := recentPredictionsQuery(userID, 5).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, user_id, hours_studied, attendance_rate, assignments_completed, result, created_at "+
			"FROM predictions WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 5",
		sql)
	assert.Equal(t, []interface{}{userID}, args)
}

func TestInsertPredictionQuery(t *testing.T) {
	p := &models.Prediction{
		ID:                   uuid.New(),
		UserID:               uuid.New(),
		HoursStudied:         7.5,
		AttendanceRate:       85,
		AssignmentsCompleted: 2,
		Result:               models.ResultPass,
		CreatedAt:            time.Now().UTC(),
	}

	sql, args, err := insertPredictionQuery(p).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO predictions")
	assert.Contains(t, sql, "$7")
	assert.NotContains(t, sql, "$8")
	require.Len(t, args, 7)
	assert.Equal(t, "Pass", args[5])
	assert.Equal(t, 7.5, args[2])
}

func TestSelectUserQuery(t *testing.T) {
	sql, args, err := selectUserQuery(squirrel.Eq{"email": "ada@example.com"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, username, email, password, created_at, updated_at FROM users WHERE email = $1 LIMIT 1",
		sql)
	assert.Equal(t, []interface{}{"ada@example.com"}, args)
}

func TestTranslateError(t *testing.T) {
	other := fmt.Errorf("connection refused")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrNoOwner},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateError(tt.in))
		})
	}
}
