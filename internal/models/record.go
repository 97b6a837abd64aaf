package models

import "time"

// AttendanceMark is the status recorded for one student in one session.
type AttendanceMark string

const (
	MarkPresent AttendanceMark = "present"
	MarkAbsent  AttendanceMark = "absent"
	MarkLate    AttendanceMark = "late"
	MarkExcused AttendanceMark = "excused"
)

// Valid returns true when the mark is a supported value.
func (m AttendanceMark) Valid() bool {
	switch m {
	case MarkPresent, MarkAbsent, MarkLate, MarkExcused:
		return true
	default:
		return false
	}
}

// CountsAsPresent reports whether the mark counts toward eligibility.
// Late arrivals count as present but are tracked separately.
func (m AttendanceMark) CountsAsPresent() bool {
	return m == MarkPresent || m == MarkLate
}

// MarkSource identifies the channel that produced a mark.
type MarkSource string

const (
	SourceManual     MarkSource = "manual"
	SourceQR         MarkSource = "qr"
	SourceBiometric  MarkSource = "biometric"
	SourceRFID       MarkSource = "rfid"
	SourceOffline    MarkSource = "offline"
	SourceImport     MarkSource = "import"
	SourceSystem     MarkSource = "system"
	SourceCorrection MarkSource = "correction"
)

// Valid returns true when the source is a supported value.
func (s MarkSource) Valid() bool {
	switch s {
	case SourceManual, SourceQR, SourceBiometric, SourceRFID, SourceOffline, SourceImport, SourceSystem, SourceCorrection:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one student's mark for one session. Exactly one row
// exists per (session, student); every channel writes through the same
// upsert path.
type AttendanceRecord struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     uint           `gorm:"not null;uniqueIndex:idx_record_session_student" json:"session_id"`
	StudentID     uint           `gorm:"not null;uniqueIndex:idx_record_session_student;index" json:"student_id"`
	Mark          AttendanceMark `gorm:"size:16;not null;default:absent" json:"mark"`
	Source        MarkSource     `gorm:"size:16;not null;default:system" json:"source"`
	MarkedAt      time.Time      `gorm:"not null" json:"marked_at"`
	MarkedBy      uint           `gorm:"not null;default:0" json:"marked_by"`
	Reason        string         `gorm:"size:512" json:"reason"`
	CorrelationID string         `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Session AttendanceSession `json:"-"`
	Student Student           `json:"-"`
}
