package models

import "time"

// SessionStatus represents the lifecycle state of an attendance session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusOpen      SessionStatus = "open"
	SessionStatusClosed    SessionStatus = "closed"
	SessionStatusLocked    SessionStatus = "locked"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusOpen, SessionStatusClosed, SessionStatusLocked, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from this state.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusLocked || s == SessionStatusCancelled
}

// AttendanceSession is one concrete class meeting requiring attendance.
// TimetableSlotID is nil for ad-hoc/makeup sessions; uniqueness is then
// enforced per (course_section, scheduled_date, start).
type AttendanceSession struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	TimetableSlotID *uint         `gorm:"uniqueIndex:idx_session_slot_date" json:"timetable_slot_id"`
	CourseSectionID uint          `gorm:"not null;index;uniqueIndex:idx_session_adhoc" json:"course_section_id"`
	FacultyID       uint          `gorm:"not null;index" json:"faculty_id"`
	ScheduledDate   time.Time     `gorm:"type:date;not null;uniqueIndex:idx_session_slot_date;uniqueIndex:idx_session_adhoc" json:"scheduled_date"`
	StartsAt        time.Time     `gorm:"not null;index;uniqueIndex:idx_session_adhoc" json:"starts_at"`
	EndsAt          time.Time     `gorm:"not null" json:"ends_at"`
	Room            string        `gorm:"size:64" json:"room"`
	Status          SessionStatus `gorm:"size:16;not null;default:scheduled;index" json:"status"`
	AutoOpened      bool          `gorm:"not null;default:false" json:"auto_opened"`
	AutoClosed      bool          `gorm:"not null;default:false" json:"auto_closed"`
	QRToken         string        `gorm:"size:512" json:"-"`
	QRExpiresAt     *time.Time    `json:"qr_expires_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	CourseSection CourseSection  `json:"-"`
	TimetableSlot *TimetableSlot `json:"-"`
}

// Markable reports whether attendance records may still be mutated.
func (s AttendanceSession) Markable() bool {
	return s.Status == SessionStatusOpen || s.Status == SessionStatusClosed
}

// Contains reports whether the given instant falls inside the session window.
func (s AttendanceSession) Contains(at time.Time) bool {
	return !at.Before(s.StartsAt) && !at.After(s.EndsAt)
}

// CanTransitionTo encodes the legal state machine:
// scheduled→open→closed→locked, with cancelled reachable from scheduled/open.
func (s AttendanceSession) CanTransitionTo(next SessionStatus) bool {
	switch next {
	case SessionStatusOpen:
		return s.Status == SessionStatusScheduled
	case SessionStatusClosed:
		return s.Status == SessionStatusOpen
	case SessionStatusLocked:
		return s.Status == SessionStatusClosed
	case SessionStatusCancelled:
		return s.Status == SessionStatusScheduled || s.Status == SessionStatusOpen
	default:
		return false
	}
}
