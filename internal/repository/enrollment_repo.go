package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
)

// EnrollmentRepository provides read access to section enrollment data.
// Enrollment management itself lives outside this service; the attendance
// core only consumes it.
type EnrollmentRepository interface {
	ListActiveBySection(ctx context.Context, sectionID uint) ([]models.Enrollment, error)
	IsActivelyEnrolled(ctx context.Context, studentID, sectionID uint) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListActiveBySection(ctx context.Context, sectionID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_section_id = ? AND status = ?", sectionID, models.EnrollmentStatusActive).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) IsActivelyEnrolled(ctx context.Context, studentID, sectionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_section_id = ? AND status = ?", studentID, sectionID, models.EnrollmentStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
