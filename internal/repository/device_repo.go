package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/attendance-api/internal/models"
)

// DeviceRepository manages biometric terminals and their subject mappings.
type DeviceRepository interface {
	GetByDeviceID(ctx context.Context, deviceID string) (models.BiometricDevice, error)
	Register(ctx context.Context, device *models.BiometricDevice) error
	ResolveSubject(ctx context.Context, deviceID, subjectID string) (uint, error)
	MapSubject(ctx context.Context, mapping *models.DeviceSubjectMapping) error
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository constructs a device repository.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (models.BiometricDevice, error) {
	var device models.BiometricDevice
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		return models.BiometricDevice{}, err
	}
	return device, nil
}

func (r *deviceRepository) Register(ctx context.Context, device *models.BiometricDevice) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"location", "is_active", "updated_at"}),
	}).Create(device).Error
}

// ResolveSubject maps a device-local subject identifier to a student id.
func (r *deviceRepository) ResolveSubject(ctx context.Context, deviceID, subjectID string) (uint, error) {
	var mapping models.DeviceSubjectMapping
	err := r.db.WithContext(ctx).
		Joins("JOIN biometric_devices ON biometric_devices.id = device_subject_mappings.device_id").
		Where("biometric_devices.device_id = ? AND device_subject_mappings.subject_id = ?", deviceID, subjectID).
		First(&mapping).Error
	if err != nil {
		return 0, err
	}
	return mapping.StudentID, nil
}

func (r *deviceRepository) MapSubject(ctx context.Context, mapping *models.DeviceSubjectMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"student_id"}),
	}).Create(mapping).Error
}
