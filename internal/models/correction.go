package models

import "time"

// CorrectionStatus is the approval state of a correction request.
type CorrectionStatus string

const (
	CorrectionStatusPending   CorrectionStatus = "pending"
	CorrectionStatusApproved  CorrectionStatus = "approved"
	CorrectionStatusRejected  CorrectionStatus = "rejected"
	CorrectionStatusCancelled CorrectionStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s CorrectionStatus) Valid() bool {
	switch s {
	case CorrectionStatusPending, CorrectionStatusApproved, CorrectionStatusRejected, CorrectionStatusCancelled:
		return true
	default:
		return false
	}
}

// AttendanceCorrectionRequest proposes a change to an existing mark.
// Terminal once approved, rejected or cancelled; approval mutates the
// referenced record through the record store's upsert path.
type AttendanceCorrectionRequest struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	SessionID    uint             `gorm:"not null;index" json:"session_id"`
	StudentID    uint             `gorm:"not null;index" json:"student_id"`
	FromMark     AttendanceMark   `gorm:"size:16;not null" json:"from_mark"`
	ToMark       AttendanceMark   `gorm:"size:16;not null" json:"to_mark"`
	Reason       string           `gorm:"size:512;not null" json:"reason"`
	Status       CorrectionStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	RequestedBy  uint             `gorm:"not null" json:"requested_by"`
	DecidedBy    *uint            `json:"decided_by"`
	DecidedAt    *time.Time       `json:"decided_at"`
	DecisionNote string           `gorm:"size:512" json:"decision_note"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Session AttendanceSession `json:"-"`
}
