package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

// ErrInvalidDateRange indicates end precedes start; nothing is written.
var ErrInvalidDateRange = errors.New("end date must not precede start date")

// MaterializerService expands recurring timetable slots into concrete
// dated sessions. Generation is idempotent: re-running over an overlapping
// range never duplicates sessions, because creation is keyed on
// (slot, date) and resolved through the unique constraint.
type MaterializerService interface {
	GenerateSessions(ctx context.Context, start, end time.Time, sectionIDs []uint) (int, error)
	CreateAdHocSession(ctx context.Context, session *models.AttendanceSession) error
}

type materializerService struct {
	slots       repository.TimetableSlotRepository
	holidays    repository.HolidayRepository
	enrollments repository.EnrollmentRepository
	sessions    repository.SessionRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewMaterializerService constructs a MaterializerService instance.
func NewMaterializerService(slots repository.TimetableSlotRepository, holidays repository.HolidayRepository, enrollments repository.EnrollmentRepository, sessions repository.SessionRepository, logger zerolog.Logger) MaterializerService {
	return &materializerService{
		slots:       slots,
		holidays:    holidays,
		enrollments: enrollments,
		sessions:    sessions,
		logger:      logger.With().Str("component", "materializer_service").Logger(),
		now:         time.Now,
	}
}

// GenerateSessions walks every date in [start, end] and creates one session
// per matching active slot, skipping holidays. Each slot/date is processed
// independently: a failure rolls back only that slot's transaction and the
// sweep continues.
func (s *materializerService) GenerateSessions(ctx context.Context, start, end time.Time, sectionIDs []uint) (int, error) {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}

	created := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		slots, err := s.slots.ListActiveByDay(ctx, int(date.Weekday()), sectionIDs)
		if err != nil {
			return created, fmt.Errorf("failed to list slots for %s: %w", date.Format("2006-01-02"), err)
		}

		for _, slot := range slots {
			holiday, err := s.holidays.IsHoliday(ctx, date, slot.CourseSection.AcademicYear)
			if err != nil {
				s.logger.Error().Err(err).
					Uint("slot_id", slot.ID).
					Str("date", date.Format("2006-01-02")).
					Msg("holiday lookup failed")
				continue
			}
			if holiday {
				continue
			}

			wasCreated, err := s.createSessionWithFanOut(ctx, slot, date)
			if err != nil {
				s.logger.Error().Err(err).
					Uint("slot_id", slot.ID).
					Str("date", date.Format("2006-01-02")).
					Msg("failed to create session")
				continue
			}
			if wasCreated {
				created++
			}
		}
	}

	s.logger.Info().
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Int("created", created).
		Msg("session generation completed")
	return created, nil
}

func (s *materializerService) createSessionWithFanOut(ctx context.Context, slot models.TimetableSlot, date time.Time) (bool, error) {
	startsAt, err := combineDateTime(date, slot.StartTime)
	if err != nil {
		return false, err
	}
	endsAt, err := combineDateTime(date, slot.EndTime)
	if err != nil {
		return false, err
	}

	slotID := slot.ID
	session := models.AttendanceSession{
		TimetableSlotID: &slotID,
		CourseSectionID: slot.CourseSectionID,
		FacultyID:       slot.FacultyID,
		ScheduledDate:   date,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Room:            slot.Room,
		Status:          models.SessionStatusScheduled,
	}

	records, err := s.defaultRecords(ctx, slot.CourseSectionID)
	if err != nil {
		return false, err
	}

	return s.sessions.CreateWithRecords(ctx, &session, records)
}

// CreateAdHocSession creates a makeup/extra session outside the timetable,
// with the same enrollment fan-out as materialized sessions.
func (s *materializerService) CreateAdHocSession(ctx context.Context, session *models.AttendanceSession) error {
	if session.EndsAt.Before(session.StartsAt) {
		return ErrInvalidDateRange
	}
	session.TimetableSlotID = nil
	session.Status = models.SessionStatusScheduled
	session.ScheduledDate = truncateToDate(session.StartsAt)

	records, err := s.defaultRecords(ctx, session.CourseSectionID)
	if err != nil {
		return err
	}

	created, err := s.sessions.CreateWithRecords(ctx, session, records)
	if err != nil {
		return err
	}
	if !created {
		return repository.ErrStateConflict
	}
	return nil
}

func (s *materializerService) defaultRecords(ctx context.Context, sectionID uint) ([]models.AttendanceRecord, error) {
	enrollments, err := s.enrollments.ListActiveBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("enrollment lookup failed: %w", err)
	}

	now := s.now().UTC()
	records := make([]models.AttendanceRecord, 0, len(enrollments))
	for _, enrollment := range enrollments {
		records = append(records, models.AttendanceRecord{
			StudentID: enrollment.StudentID,
			Mark:      models.MarkAbsent,
			Source:    models.SourceSystem,
			MarkedAt:  now,
		})
	}
	return records, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func combineDateTime(date time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot time %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}
