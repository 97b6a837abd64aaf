package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

var (
	// ErrSlotNotFound indicates the timetable slot does not exist.
	ErrSlotNotFound = errors.New("timetable slot not found")
	// ErrSlotOverlap indicates the slot would collide with another active
	// slot of the same faculty on the same weekday.
	ErrSlotOverlap = errors.New("slot overlaps an existing slot for this faculty")
	// ErrInvalidSlotTimes indicates end time does not follow start time.
	ErrInvalidSlotTimes = errors.New("slot end time must be after start time")
)

// TimetableService manages recurring slots and the holiday calendar.
type TimetableService interface {
	CreateSlot(ctx context.Context, payload dto.SlotCreateRequest) (dto.SlotResponse, error)
	UpdateSlot(ctx context.Context, id uint, payload dto.SlotUpdateRequest) (dto.SlotResponse, error)
	ListSlots(ctx context.Context) ([]dto.SlotResponse, error)
	AddHoliday(ctx context.Context, payload dto.HolidayCreateRequest) (models.Holiday, error)
	ListHolidays(ctx context.Context, academicYear string) ([]models.Holiday, error)
}

type timetableService struct {
	slots     repository.TimetableSlotRepository
	holidays  repository.HolidayRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTimetableService constructs a TimetableService instance.
func NewTimetableService(slots repository.TimetableSlotRepository, holidays repository.HolidayRepository, validate *validator.Validate, logger zerolog.Logger) TimetableService {
	return &timetableService{
		slots:     slots,
		holidays:  holidays,
		validator: validate,
		logger:    logger.With().Str("component", "timetable_service").Logger(),
	}
}

func (s *timetableService) CreateSlot(ctx context.Context, payload dto.SlotCreateRequest) (dto.SlotResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SlotResponse{}, err
	}
	if payload.EndTime <= payload.StartTime {
		return dto.SlotResponse{}, ErrInvalidSlotTimes
	}

	slot := models.TimetableSlot{
		CourseSectionID: payload.CourseSectionID,
		FacultyID:       payload.FacultyID,
		DayOfWeek:       payload.DayOfWeek,
		StartTime:       payload.StartTime,
		EndTime:         payload.EndTime,
		Room:            payload.Room,
		IsActive:        true,
	}

	if err := s.ensureNoOverlap(ctx, slot, 0); err != nil {
		return dto.SlotResponse{}, err
	}
	if err := s.slots.Create(ctx, &slot); err != nil {
		return dto.SlotResponse{}, err
	}
	return dto.NewSlotResponse(slot), nil
}

func (s *timetableService) UpdateSlot(ctx context.Context, id uint, payload dto.SlotUpdateRequest) (dto.SlotResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SlotResponse{}, err
	}

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SlotResponse{}, ErrSlotNotFound
		}
		return dto.SlotResponse{}, err
	}

	if payload.DayOfWeek != nil {
		slot.DayOfWeek = *payload.DayOfWeek
	}
	if payload.StartTime != nil {
		slot.StartTime = *payload.StartTime
	}
	if payload.EndTime != nil {
		slot.EndTime = *payload.EndTime
	}
	if payload.Room != nil {
		slot.Room = *payload.Room
	}
	if payload.IsActive != nil {
		slot.IsActive = *payload.IsActive
	}

	if slot.EndTime <= slot.StartTime {
		return dto.SlotResponse{}, ErrInvalidSlotTimes
	}
	if slot.IsActive {
		if err := s.ensureNoOverlap(ctx, slot, slot.ID); err != nil {
			return dto.SlotResponse{}, err
		}
	}

	if err := s.slots.Update(ctx, &slot); err != nil {
		return dto.SlotResponse{}, err
	}
	return dto.NewSlotResponse(slot), nil
}

func (s *timetableService) ListSlots(ctx context.Context) ([]dto.SlotResponse, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSlotResponseSlice(slots), nil
}

// ensureNoOverlap enforces the faculty-overlap invariant: no two active
// slots for the same faculty may collide in time on the same weekday.
func (s *timetableService) ensureNoOverlap(ctx context.Context, candidate models.TimetableSlot, excludeID uint) error {
	existing, err := s.slots.ListActiveByFaculty(ctx, candidate.FacultyID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if candidate.Overlaps(other) {
			return ErrSlotOverlap
		}
	}
	return nil
}

func (s *timetableService) AddHoliday(ctx context.Context, payload dto.HolidayCreateRequest) (models.Holiday, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Holiday{}, err
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return models.Holiday{}, err
	}

	holiday := models.Holiday{
		Date:         date,
		AcademicYear: payload.AcademicYear,
		Name:         payload.Name,
	}
	if err := s.holidays.Create(ctx, &holiday); err != nil {
		return models.Holiday{}, err
	}
	return holiday, nil
}

func (s *timetableService) ListHolidays(ctx context.Context, academicYear string) ([]models.Holiday, error) {
	return s.holidays.List(ctx, academicYear)
}
