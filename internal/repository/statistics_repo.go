package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/attendance-api/internal/models"
)

// StatisticsRepository stores derived attendance rollups. Rows are fully
// replaced per (student, section, period); there is no incremental update.
type StatisticsRepository interface {
	ReplaceAll(ctx context.Context, rows []models.AttendanceStatistics) (int64, error)
	ListByStudent(ctx context.Context, studentID uint, period string) ([]models.AttendanceStatistics, error)
	Get(ctx context.Context, studentID, sectionID uint, period string) (models.AttendanceStatistics, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

// NewStatisticsRepository constructs a statistics repository.
func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) ReplaceAll(ctx context.Context, rows []models.AttendanceStatistics) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "course_section_id"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_sessions", "present_count", "absent_count", "late_count",
			"excused_count", "percentage", "is_eligible", "computed_at", "updated_at",
		}),
	}).Create(&rows)
	return result.RowsAffected, result.Error
}

func (r *statisticsRepository) ListByStudent(ctx context.Context, studentID uint, period string) ([]models.AttendanceStatistics, error) {
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if period != "" {
		query = query.Where("period = ?", period)
	}

	var rows []models.AttendanceStatistics
	if err := query.Order("course_section_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *statisticsRepository) Get(ctx context.Context, studentID, sectionID uint, period string) (models.AttendanceStatistics, error) {
	var row models.AttendanceStatistics
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_section_id = ? AND period = ?", studentID, sectionID, period).
		First(&row).Error
	if err != nil {
		return models.AttendanceStatistics{}, err
	}
	return row, nil
}
