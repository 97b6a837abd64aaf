package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
)

// TimetableSlotRepository defines persistence operations for timetable slots.
type TimetableSlotRepository interface {
	GetByID(ctx context.Context, id uint) (models.TimetableSlot, error)
	ListActiveByDay(ctx context.Context, dayOfWeek int, sectionIDs []uint) ([]models.TimetableSlot, error)
	ListActiveByFaculty(ctx context.Context, facultyID uint) ([]models.TimetableSlot, error)
	List(ctx context.Context) ([]models.TimetableSlot, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Update(ctx context.Context, slot *models.TimetableSlot) error
	Deactivate(ctx context.Context, id uint) error
}

type timetableSlotRepository struct {
	db *gorm.DB
}

// NewTimetableSlotRepository instantiates a GORM-backed repository.
func NewTimetableSlotRepository(db *gorm.DB) TimetableSlotRepository {
	return &timetableSlotRepository{db: db}
}

func (r *timetableSlotRepository) GetByID(ctx context.Context, id uint) (models.TimetableSlot, error) {
	var slot models.TimetableSlot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return models.TimetableSlot{}, err
	}
	return slot, nil
}

func (r *timetableSlotRepository) ListActiveByDay(ctx context.Context, dayOfWeek int, sectionIDs []uint) ([]models.TimetableSlot, error) {
	query := r.db.WithContext(ctx).
		Preload("CourseSection").
		Where("day_of_week = ? AND is_active = ?", dayOfWeek, true)
	if len(sectionIDs) > 0 {
		query = query.Where("course_section_id IN ?", sectionIDs)
	}

	var slots []models.TimetableSlot
	if err := query.Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timetableSlotRepository) ListActiveByFaculty(ctx context.Context, facultyID uint) ([]models.TimetableSlot, error) {
	var slots []models.TimetableSlot
	err := r.db.WithContext(ctx).
		Where("faculty_id = ? AND is_active = ?", facultyID, true).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timetableSlotRepository) List(ctx context.Context) ([]models.TimetableSlot, error) {
	var slots []models.TimetableSlot
	if err := r.db.WithContext(ctx).Order("day_of_week ASC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timetableSlotRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *timetableSlotRepository) Update(ctx context.Context, slot *models.TimetableSlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

// Deactivate soft-disables a slot; sessions keep referencing it.
func (r *timetableSlotRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.TimetableSlot{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
