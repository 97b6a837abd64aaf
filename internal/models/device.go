package models

import "time"

// BiometricDevice is a registered check-in terminal.
type BiometricDevice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  string    `gorm:"size:64;uniqueIndex;not null" json:"device_id"`
	Location  string    `gorm:"size:255" json:"location"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceSubjectMapping binds a device-local subject identifier to a student.
// Devices enroll fingerprints/faces under their own subject ids, so the
// mapping is scoped per device rather than global.
type DeviceSubjectMapping struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  uint      `gorm:"not null;uniqueIndex:idx_device_subject" json:"device_id"`
	SubjectID string    `gorm:"size:64;not null;uniqueIndex:idx_device_subject" json:"subject_id"`
	StudentID uint      `gorm:"not null;index" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`

	Device BiometricDevice `json:"-"`
}
