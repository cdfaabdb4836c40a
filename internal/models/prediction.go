package models

import (
	"time"

	"github.com/google/uuid"
)

type PredictionResult string

const (
	ResultPass PredictionResult = "Pass"
	ResultFail PredictionResult = "Fail"
)

// PredictionInput holds the three metrics a student is classified on.
type PredictionInput struct {
	HoursStudied         float64
	AttendanceRate       float64
	AssignmentsCompleted int
}

// Prediction is one persisted classification. Rows are never updated or deleted.
type Prediction struct {
	ID                   uuid.UUID        `db:"id"`
	UserID               uuid.UUID        `db:"user_id"`
	HoursStudied         float64          `db:"hours_studied"`
	AttendanceRate       float64          `db:"attendance_rate"`
	AssignmentsCompleted int              `db:"assignments_completed"`
	Result               PredictionResult `db:"result"`
	CreatedAt            time.Time        `db:"created_at"`
}

func (p *Prediction) Input() PredictionInput {
	return PredictionInput{
		HoursStudied:         p.HoursStudied,
		AttendanceRate:       p.AttendanceRate,
		AssignmentsCompleted: p.AssignmentsCompleted,
	}
}
