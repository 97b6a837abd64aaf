package dto

import (
	"time"

	"github.com/campushq/attendance-api/internal/models"
)

// MarkRequest records or updates one student's mark in a session.
type MarkRequest struct {
	SessionID uint   `json:"session_id" validate:"required,gt=0"`
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Mark      string `json:"mark" validate:"required,oneof=present absent late excused"`
	Reason    string `json:"reason" validate:"omitempty,max=512"`
}

// BulkMarkEntry is one row of a bulk mark request.
type BulkMarkEntry struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Mark      string `json:"mark" validate:"required,oneof=present absent late excused"`
	Reason    string `json:"reason" validate:"omitempty,max=512"`
}

// BulkMarkRequest marks many students in one session. Entries fail
// independently; the batch never aborts on the first bad row.
type BulkMarkRequest struct {
	Entries []BulkMarkEntry `json:"entries" validate:"required,min=1,max=500,dive"`
}

// BulkEntryError reports one failed bulk entry.
type BulkEntryError struct {
	StudentID uint   `json:"student_id"`
	Error     string `json:"error"`
}

// BulkMarkResponse summarises a bulk mark outcome.
type BulkMarkResponse struct {
	Applied int              `json:"applied"`
	Errors  []BulkEntryError `json:"errors"`
}

// QRCheckInRequest is a student's scan of a session QR code. The student
// identity comes from the authenticated request, not the token.
type QRCheckInRequest struct {
	Token string `json:"token" validate:"required"`
}

// OfflineRecord is one locally-queued mark from an offline client. The
// client uuid makes repeated sync attempts idempotent.
type OfflineRecord struct {
	ClientUUID string `json:"client_uuid" validate:"required,uuid4"`
	SessionID  uint   `json:"session_id" validate:"required,gt=0"`
	StudentID  uint   `json:"student_id" validate:"required,gt=0"`
	Mark       string `json:"mark" validate:"required,oneof=present absent late excused"`
	Reason     string `json:"reason" validate:"omitempty,max=512"`
}

// OfflineSyncRequest uploads a batch of offline marks.
type OfflineSyncRequest struct {
	Records []OfflineRecord `json:"records" validate:"required,min=1,max=500,dive"`
}

// OfflineSyncError reports one failed offline record.
type OfflineSyncError struct {
	ClientUUID string `json:"client_uuid"`
	Error      string `json:"error"`
}

// OfflineSyncResponse summarises an offline sync outcome.
type OfflineSyncResponse struct {
	Synced int                `json:"synced"`
	Errors []OfflineSyncError `json:"errors"`
}

// BiometricEventRequest is the webhook payload delivered by a biometric
// vendor integration.
type BiometricEventRequest struct {
	DeviceID      string    `json:"device_id" validate:"required,max=64"`
	SubjectID     string    `json:"subject_id" validate:"required,max=64"`
	EventType     string    `json:"event_type" validate:"required,oneof=checkin checkout"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	VendorEventID string    `json:"vendor_event_id" validate:"required,max=64"`
}

// RecordResponse is the public shape of an attendance record.
type RecordResponse struct {
	ID          uint      `json:"id"`
	SessionID   uint      `json:"session_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	Mark        string    `json:"mark"`
	Source      string    `json:"source"`
	MarkedAt    time.Time `json:"marked_at"`
	MarkedBy    uint      `json:"marked_by"`
	Reason      string    `json:"reason,omitempty"`
}

// NewRecordResponse maps a record model to its response shape.
func NewRecordResponse(record models.AttendanceRecord) RecordResponse {
	return RecordResponse{
		ID:          record.ID,
		SessionID:   record.SessionID,
		StudentID:   record.StudentID,
		StudentName: record.Student.Name,
		Mark:        string(record.Mark),
		Source:      string(record.Source),
		MarkedAt:    record.MarkedAt,
		MarkedBy:    record.MarkedBy,
		Reason:      record.Reason,
	}
}

// NewRecordResponseSlice maps a slice of records.
func NewRecordResponseSlice(records []models.AttendanceRecord) []RecordResponse {
	responses := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewRecordResponse(record))
	}
	return responses
}
