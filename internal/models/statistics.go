package models

import "time"

// AttendanceStatistics is a derived rollup per (student, section, period).
// Fully recomputed by the aggregator; never hand-edited.
type AttendanceStatistics struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentID       uint      `gorm:"not null;uniqueIndex:idx_stats_key" json:"student_id"`
	CourseSectionID uint      `gorm:"not null;uniqueIndex:idx_stats_key" json:"course_section_id"`
	Period          string    `gorm:"size:32;not null;uniqueIndex:idx_stats_key" json:"period"`
	TotalSessions   int       `gorm:"not null" json:"total_sessions"`
	PresentCount    int       `gorm:"not null" json:"present_count"`
	AbsentCount     int       `gorm:"not null" json:"absent_count"`
	LateCount       int       `gorm:"not null" json:"late_count"`
	ExcusedCount    int       `gorm:"not null" json:"excused_count"`
	Percentage      float64   `gorm:"not null" json:"percentage"`
	IsEligible      bool      `gorm:"not null" json:"is_eligible"`
	ComputedAt      time.Time `gorm:"not null" json:"computed_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
