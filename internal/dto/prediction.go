package dto

// PredictionRequest carries the raw form metrics. Pointers tell a missing
// field apart from a zero value.
type PredictionRequest struct {
	HoursStudied         *float64 `json:"hours_studied" form:"hours_studied" validate:"required,gte=0"`
	AttendanceRate       *float64 `json:"attendance_rate" form:"attendance_rate" validate:"required,gte=0,lte=100"`
	AssignmentsCompleted *int     `json:"assignments_completed" form:"assignments_completed" validate:"required,gte=0"`
}

type ClassifyResponse struct {
	Result string `json:"result"`
}

type PredictionResponse struct {
	Result     string                    `json:"result"`
	Saved      bool                      `json:"saved"`
	Warning    string                    `json:"warning,omitempty"`
	Prediction *PredictionRecordResponse `json:"prediction,omitempty"`
}

type PredictionRecordResponse struct {
	ID                   string  `json:"id"`
	HoursStudied         float64 `json:"hours_studied"`
	AttendanceRate       float64 `json:"attendance_rate"`
	AssignmentsCompleted int     `json:"assignments_completed"`
	Result               string  `json:"result"`
	CreatedAt            string  `json:"created_at"`
}

type PredictionHistoryResponse struct {
	Predictions []PredictionRecordResponse `json:"predictions"`
	Count       int                        `json:"count"`
}
