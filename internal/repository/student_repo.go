package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
)

// StudentRepository provides read access to the student roster. The
// roster is owned by the registrar system; this subsystem only verifies
// and resolves students referenced by attendance rows.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// Exists reports whether an active student with the given id is on the
// roster. Deactivated students resolve false so their rollups stop
// being served.
func (r *studentRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
