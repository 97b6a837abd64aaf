package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

// ErrStudentNotFound is returned when a rollup is requested for a
// student who is not on the active roster.
var ErrStudentNotFound = errors.New("student not found")

// StatisticsService derives attendance percentages and exam eligibility
// from the record store. It is a pure read-side projection: recompute
// replaces rollup rows wholesale and is safe to re-run at any time.
type StatisticsService interface {
	Recompute(ctx context.Context, payload dto.RecomputeRequest) (int, error)
	ListByStudent(ctx context.Context, studentID uint, period string) ([]dto.StatisticsResponse, error)
	Get(ctx context.Context, studentID, sectionID uint, period string) (dto.StatisticsResponse, error)
}

type statisticsService struct {
	records    repository.RecordRepository
	statistics repository.StatisticsRepository
	students   repository.StudentRepository
	settings   SettingsService
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStatisticsService constructs a StatisticsService instance.
func NewStatisticsService(records repository.RecordRepository, statistics repository.StatisticsRepository, students repository.StudentRepository, settings SettingsService, validate *validator.Validate, logger zerolog.Logger) StatisticsService {
	return &statisticsService{
		records:    records,
		statistics: statistics,
		students:   students,
		settings:   settings,
		validator:  validate,
		logger:     logger.With().Str("component", "statistics_service").Logger(),
		now:        time.Now,
	}
}

func (s *statisticsService) Recompute(ctx context.Context, payload dto.RecomputeRequest) (int, error) {
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	aggregates, err := s.records.Aggregate(ctx, payload.StudentID, payload.CourseSectionID, payload.Period)
	if err != nil {
		return 0, fmt.Errorf("aggregation failed: %w", err)
	}

	threshold := s.settings.EligibilityThreshold(ctx)
	computedAt := s.now().UTC()

	rows := make([]models.AttendanceStatistics, 0, len(aggregates))
	for _, agg := range aggregates {
		percentage := computePercentage(agg)
		rows = append(rows, models.AttendanceStatistics{
			StudentID:       agg.StudentID,
			CourseSectionID: agg.CourseSectionID,
			Period:          agg.Period,
			TotalSessions:   agg.Total,
			PresentCount:    agg.Present,
			AbsentCount:     agg.Absent,
			LateCount:       agg.Late,
			ExcusedCount:    agg.Excused,
			Percentage:      percentage,
			IsEligible:      percentage >= threshold,
			ComputedAt:      computedAt,
		})
	}

	updated, err := s.statistics.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to store statistics: %w", err)
	}

	s.logger.Info().Int64("rows", updated).Msg("statistics recomputed")
	return len(rows), nil
}

// computePercentage excludes excused absences from the denominator; late
// arrivals count as present. An empty denominator defines 100%.
func computePercentage(agg repository.MarkAggregate) float64 {
	denominator := agg.Total - agg.Excused
	if denominator <= 0 {
		return 100
	}
	attended := agg.Present + agg.Late
	return float64(attended) / float64(denominator) * 100
}

func (s *statisticsService) ListByStudent(ctx context.Context, studentID uint, period string) ([]dto.StatisticsResponse, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}

	rows, err := s.statistics.ListByStudent(ctx, studentID, period)
	if err != nil {
		return nil, err
	}
	// Read endpoints never error on empty data.
	return dto.NewStatisticsResponseSlice(rows), nil
}

func (s *statisticsService) Get(ctx context.Context, studentID, sectionID uint, period string) (dto.StatisticsResponse, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return dto.StatisticsResponse{}, err
	}

	row, err := s.statistics.Get(ctx, studentID, sectionID, period)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			threshold := s.settings.EligibilityThreshold(ctx)
			return dto.NewStatisticsResponse(models.AttendanceStatistics{
				StudentID:       studentID,
				CourseSectionID: sectionID,
				Period:          period,
				Percentage:      100,
				IsEligible:      100 >= threshold,
				ComputedAt:      s.now().UTC(),
			}), nil
		}
		return dto.StatisticsResponse{}, err
	}
	return dto.NewStatisticsResponse(row), nil
}

func (s *statisticsService) requireStudent(ctx context.Context, studentID uint) error {
	active, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return fmt.Errorf("roster lookup failed: %w", err)
	}
	if !active {
		return ErrStudentNotFound
	}
	return nil
}
