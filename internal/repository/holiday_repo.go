package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
)

// HolidayRepository answers calendar lookups for non-teaching days.
type HolidayRepository interface {
	IsHoliday(ctx context.Context, date time.Time, academicYear string) (bool, error)
	List(ctx context.Context, academicYear string) ([]models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
}

type holidayRepository struct {
	db *gorm.DB
}

// NewHolidayRepository constructs a holiday repository.
func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) IsHoliday(ctx context.Context, date time.Time, academicYear string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Holiday{}).
		Where("date = ?", date.Format("2006-01-02"))
	if academicYear != "" {
		query = query.Where("academic_year = ?", academicYear)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holidayRepository) List(ctx context.Context, academicYear string) ([]models.Holiday, error) {
	query := r.db.WithContext(ctx).Order("date ASC")
	if academicYear != "" {
		query = query.Where("academic_year = ?", academicYear)
	}

	var holidays []models.Holiday
	if err := query.Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}

func (r *holidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	return r.db.WithContext(ctx).Create(holiday).Error
}
