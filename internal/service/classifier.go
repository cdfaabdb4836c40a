package service

import "student-performance/internal/models"

// Pass thresholds, all inclusive.
const (
	MinHoursStudied         = 5.0
	MinAttendanceRate       = 75.0
	MinAssignmentsCompleted = 2
)

// Classify applies the pass rule. Input must already be validated.
func Classify(in models.PredictionInput) models.PredictionResult {
	if in.HoursStudied >= MinHoursStudied &&
		in.AttendanceRate >= MinAttendanceRate &&
		in.AssignmentsCompleted >= MinAssignmentsCompleted {
		return models.ResultPass
	}
	return models.ResultFail
}
