package dto

import (
	"time"

	"github.com/campushq/attendance-api/internal/models"
)

// GenerateSessionsRequest asks the materializer to expand timetable slots
// over an inclusive date range.
type GenerateSessionsRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	SectionIDs []uint `json:"section_ids" validate:"omitempty,dive,gt=0"`
}

// AdHocSessionRequest creates a makeup/extra session outside the timetable.
type AdHocSessionRequest struct {
	CourseSectionID uint   `json:"course_section_id" validate:"required,gt=0"`
	FacultyID       uint   `json:"faculty_id" validate:"required,gt=0"`
	StartsAt        string `json:"starts_at" validate:"required"`
	EndsAt          string `json:"ends_at" validate:"required"`
	Room            string `json:"room" validate:"omitempty,max=64"`
}

// SessionListQuery filters session listings.
type SessionListQuery struct {
	CourseSectionID uint   `query:"course_section_id"`
	FacultyID       uint   `query:"faculty_id"`
	Status          string `query:"status" validate:"omitempty,oneof=scheduled open closed locked cancelled"`
	DateFrom        string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo          string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page            int    `query:"page" validate:"omitempty,gte=1"`
	PageSize        int    `query:"page_size" validate:"omitempty,gte=1,lte=200"`
}

// SessionResponse is the public shape of an attendance session.
type SessionResponse struct {
	ID              uint       `json:"id"`
	TimetableSlotID *uint      `json:"timetable_slot_id"`
	CourseSectionID uint       `json:"course_section_id"`
	FacultyID       uint       `json:"faculty_id"`
	ScheduledDate   string     `json:"scheduled_date"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Room            string     `json:"room"`
	Status          string     `json:"status"`
	AutoOpened      bool       `json:"auto_opened"`
	AutoClosed      bool       `json:"auto_closed"`
	QRToken         string     `json:"qr_token,omitempty"`
	QRExpiresAt     *time.Time `json:"qr_expires_at,omitempty"`
}

// NewSessionResponse maps a session model to its response shape.
// includeQR controls whether the check-in token is exposed; only faculty
// and admin views should set it.
func NewSessionResponse(session models.AttendanceSession, includeQR bool) SessionResponse {
	resp := SessionResponse{
		ID:              session.ID,
		TimetableSlotID: session.TimetableSlotID,
		CourseSectionID: session.CourseSectionID,
		FacultyID:       session.FacultyID,
		ScheduledDate:   session.ScheduledDate.Format("2006-01-02"),
		StartsAt:        session.StartsAt,
		EndsAt:          session.EndsAt,
		Room:            session.Room,
		Status:          string(session.Status),
		AutoOpened:      session.AutoOpened,
		AutoClosed:      session.AutoClosed,
	}
	if includeQR {
		resp.QRToken = session.QRToken
		resp.QRExpiresAt = session.QRExpiresAt
	}
	return resp
}

// NewSessionResponseSlice maps a slice of sessions.
func NewSessionResponseSlice(sessions []models.AttendanceSession, includeQR bool) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewSessionResponse(session, includeQR))
	}
	return responses
}

// GenerateSessionsResponse reports materialization results.
type GenerateSessionsResponse struct {
	Created int `json:"created"`
}
