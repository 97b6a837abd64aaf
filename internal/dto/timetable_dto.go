package dto

import (
	"github.com/campushq/attendance-api/internal/models"
)

// SlotCreateRequest defines a new recurring timetable slot.
type SlotCreateRequest struct {
	CourseSectionID uint   `json:"course_section_id" validate:"required,gt=0"`
	FacultyID       uint   `json:"faculty_id" validate:"required,gt=0"`
	DayOfWeek       int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime         string `json:"end_time" validate:"required,datetime=15:04"`
	Room            string `json:"room" validate:"omitempty,max=64"`
}

// SlotUpdateRequest patches an existing slot. Nil fields are untouched.
type SlotUpdateRequest struct {
	DayOfWeek *int    `json:"day_of_week" validate:"omitempty,gte=0,lte=6"`
	StartTime *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Room      *string `json:"room" validate:"omitempty,max=64"`
	IsActive  *bool   `json:"is_active"`
}

// SlotResponse is the public shape of a timetable slot.
type SlotResponse struct {
	ID              uint   `json:"id"`
	CourseSectionID uint   `json:"course_section_id"`
	FacultyID       uint   `json:"faculty_id"`
	DayOfWeek       int    `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Room            string `json:"room"`
	IsActive        bool   `json:"is_active"`
}

// NewSlotResponse maps a slot model to its response shape.
func NewSlotResponse(slot models.TimetableSlot) SlotResponse {
	return SlotResponse{
		ID:              slot.ID,
		CourseSectionID: slot.CourseSectionID,
		FacultyID:       slot.FacultyID,
		DayOfWeek:       slot.DayOfWeek,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		Room:            slot.Room,
		IsActive:        slot.IsActive,
	}
}

// NewSlotResponseSlice maps a slice of slots.
func NewSlotResponseSlice(slots []models.TimetableSlot) []SlotResponse {
	responses := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		responses = append(responses, NewSlotResponse(slot))
	}
	return responses
}

// HolidayCreateRequest adds a non-teaching day to the calendar.
type HolidayCreateRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	AcademicYear string `json:"academic_year" validate:"required,max=16"`
	Name         string `json:"name" validate:"required,max=255"`
}

// SettingUpdateRequest changes one runtime setting.
type SettingUpdateRequest struct {
	Key   string `json:"key" validate:"required,max=128"`
	Value string `json:"value" validate:"required,max=512"`
}
