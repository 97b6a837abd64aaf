package models

import "time"

// TimetableSlot is a recurring weekly teaching slot for a course section.
// Slots are soft-deactivated rather than deleted so historical sessions keep
// a valid reference.
type TimetableSlot struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CourseSectionID uint      `gorm:"not null;index" json:"course_section_id"`
	FacultyID       uint      `gorm:"not null;index" json:"faculty_id"`
	DayOfWeek       int       `gorm:"not null" json:"day_of_week"`
	StartTime       string    `gorm:"size:5;not null" json:"start_time"`
	EndTime         string    `gorm:"size:5;not null" json:"end_time"`
	Room            string    `gorm:"size:64" json:"room"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	CourseSection CourseSection `json:"-"`
}

// Overlaps reports whether two slots collide on the same weekday.
// Times are "HH:MM" strings, so lexical comparison is chronological.
func (s TimetableSlot) Overlaps(other TimetableSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// Holiday marks a non-teaching day within an academic year.
type Holiday struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:idx_holiday_date_year" json:"date"`
	AcademicYear string    `gorm:"size:16;not null;uniqueIndex:idx_holiday_date_year" json:"academic_year"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}
