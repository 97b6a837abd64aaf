package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
)

func newTimetableFixture() (TimetableService, *stubSlotRepo, *stubHolidayRepo) {
	slots := newStubSlotRepo()
	holidays := newStubHolidayRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTimetableService(slots, holidays, validate, testLogger())
	return svc, slots, holidays
}

func TestCreateSlotRejectsOverlap(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	first, err := svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 1, FacultyID: 10, DayOfWeek: 1,
		StartTime: "09:00", EndTime: "10:30", Room: "A-101",
	})
	require.NoError(t, err)
	require.True(t, first.IsActive)

	// Same faculty, same weekday, overlapping window.
	_, err = svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 2, FacultyID: 10, DayOfWeek: 1,
		StartTime: "10:00", EndTime: "11:00",
	})
	require.True(t, errors.Is(err, ErrSlotOverlap))

	// Back-to-back is fine.
	_, err = svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 2, FacultyID: 10, DayOfWeek: 1,
		StartTime: "10:30", EndTime: "11:30",
	})
	require.NoError(t, err)

	// Other faculty and other weekday never collide.
	_, err = svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 2, FacultyID: 11, DayOfWeek: 1,
		StartTime: "09:30", EndTime: "10:00",
	})
	require.NoError(t, err)
	_, err = svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 2, FacultyID: 10, DayOfWeek: 2,
		StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
}

func TestCreateSlotRejectsInvertedTimes(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.CreateSlot(context.Background(), dto.SlotCreateRequest{
		CourseSectionID: 1, FacultyID: 10, DayOfWeek: 1,
		StartTime: "10:00", EndTime: "09:00",
	})
	require.True(t, errors.Is(err, ErrInvalidSlotTimes))
}

func TestUpdateSlotExcludesItselfFromOverlapCheck(t *testing.T) {
	svc, slots, _ := newTimetableFixture()

	slot := slots.add(models.TimetableSlot{
		CourseSectionID: 1, FacultyID: 10, DayOfWeek: 1,
		StartTime: "09:00", EndTime: "10:00", IsActive: true,
	})

	// Extending the same slot must not collide with its own window.
	newEnd := "10:30"
	updated, err := svc.UpdateSlot(context.Background(), slot.ID, dto.SlotUpdateRequest{EndTime: &newEnd})
	require.NoError(t, err)
	require.Equal(t, "10:30", updated.EndTime)

	other := slots.add(models.TimetableSlot{
		CourseSectionID: 2, FacultyID: 10, DayOfWeek: 1,
		StartTime: "11:00", EndTime: "12:00", IsActive: true,
	})

	// Moving it into another slot's window fails.
	intoOther := "11:30"
	_, err = svc.UpdateSlot(context.Background(), slot.ID, dto.SlotUpdateRequest{EndTime: &intoOther})
	require.True(t, errors.Is(err, ErrSlotOverlap))

	// Deactivated slots skip the overlap check entirely.
	inactive := false
	shifted := "11:30"
	_, err = svc.UpdateSlot(context.Background(), other.ID, dto.SlotUpdateRequest{StartTime: &shifted, IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.UpdateSlot(context.Background(), 99999, dto.SlotUpdateRequest{})
	require.True(t, errors.Is(err, ErrSlotNotFound))
}

func TestAddHolidayParsesDate(t *testing.T) {
	svc, _, holidays := newTimetableFixture()

	holiday, err := svc.AddHoliday(context.Background(), dto.HolidayCreateRequest{
		Date: "2026-10-02", AcademicYear: "2026-27", Name: "Gandhi Jayanti",
	})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), holiday.Date)
	require.True(t, holidays.dates["2026-10-02"])

	_, err = svc.AddHoliday(context.Background(), dto.HolidayCreateRequest{
		Date: "02-10-2026", AcademicYear: "2026-27", Name: "bad format",
	})
	require.Error(t, err)
}
