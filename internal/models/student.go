package models

import "time"

// Student represents a learner whose attendance is tracked.
type Student struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Email      string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	RollNumber string    `gorm:"size:64;uniqueIndex;not null" json:"roll_number"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CourseSection is one teachable unit of a course within an academic term.
type CourseSection struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	AcademicYear string    `gorm:"size:16;not null;index" json:"academic_year"`
	Term         string    `gorm:"size:32;not null" json:"term"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EnrollmentStatus describes a student's standing within a section.
type EnrollmentStatus string

const (
	EnrollmentStatusActive  EnrollmentStatus = "active"
	EnrollmentStatusDropped EnrollmentStatus = "dropped"
)

// Enrollment links a student to a course section.
type Enrollment struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	StudentID       uint             `gorm:"not null;uniqueIndex:idx_enrollment_pair" json:"student_id"`
	CourseSectionID uint             `gorm:"not null;uniqueIndex:idx_enrollment_pair" json:"course_section_id"`
	Status          EnrollmentStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	Student       Student       `json:"-"`
	CourseSection CourseSection `json:"-"`
}
