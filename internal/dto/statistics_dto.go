package dto

import (
	"time"

	"github.com/campushq/attendance-api/internal/models"
)

// RecomputeRequest scopes a statistics recomputation. Zero values mean
// "all".
type RecomputeRequest struct {
	StudentID       uint   `json:"student_id" validate:"omitempty,gt=0"`
	CourseSectionID uint   `json:"course_section_id" validate:"omitempty,gt=0"`
	Period          string `json:"period" validate:"omitempty,max=32"`
}

// RecomputeResponse reports how many rollup rows were written.
type RecomputeResponse struct {
	Updated int `json:"updated"`
}

// StatisticsResponse is the public shape of an attendance rollup.
type StatisticsResponse struct {
	StudentID       uint      `json:"student_id"`
	CourseSectionID uint      `json:"course_section_id"`
	Period          string    `json:"period"`
	TotalSessions   int       `json:"total_sessions"`
	PresentCount    int       `json:"present_count"`
	AbsentCount     int       `json:"absent_count"`
	LateCount       int       `json:"late_count"`
	ExcusedCount    int       `json:"excused_count"`
	Percentage      float64   `json:"percentage"`
	IsEligible      bool      `json:"is_eligible"`
	ComputedAt      time.Time `json:"computed_at"`
}

// NewStatisticsResponse maps a statistics model to its response shape.
func NewStatisticsResponse(row models.AttendanceStatistics) StatisticsResponse {
	return StatisticsResponse{
		StudentID:       row.StudentID,
		CourseSectionID: row.CourseSectionID,
		Period:          row.Period,
		TotalSessions:   row.TotalSessions,
		PresentCount:    row.PresentCount,
		AbsentCount:     row.AbsentCount,
		LateCount:       row.LateCount,
		ExcusedCount:    row.ExcusedCount,
		Percentage:      row.Percentage,
		IsEligible:      row.IsEligible,
		ComputedAt:      row.ComputedAt,
	}
}

// NewStatisticsResponseSlice maps a slice of rollups.
func NewStatisticsResponseSlice(rows []models.AttendanceStatistics) []StatisticsResponse {
	responses := make([]StatisticsResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, NewStatisticsResponse(row))
	}
	return responses
}
