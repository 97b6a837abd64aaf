package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

// DeviceRegisterInput describes a device registration or update.
type DeviceRegisterInput struct {
	DeviceID string `validate:"required,max=64"`
	Location string `validate:"omitempty,max=255"`
	IsActive bool
}

// SubjectMappingInput binds one device-local subject to a student.
type SubjectMappingInput struct {
	SubjectID string `validate:"required,max=64"`
	StudentID uint   `validate:"required,gt=0"`
}

// DeviceService manages the biometric terminal registry.
type DeviceService interface {
	Register(ctx context.Context, input DeviceRegisterInput) (models.BiometricDevice, error)
	MapSubject(ctx context.Context, deviceID string, input SubjectMappingInput) (models.DeviceSubjectMapping, error)
}

type deviceService struct {
	devices   repository.DeviceRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewDeviceService constructs a DeviceService instance.
func NewDeviceService(devices repository.DeviceRepository, validate *validator.Validate, logger zerolog.Logger) DeviceService {
	return &deviceService{
		devices:   devices,
		validator: validate,
		logger:    logger.With().Str("component", "device_service").Logger(),
	}
}

func (s *deviceService) Register(ctx context.Context, input DeviceRegisterInput) (models.BiometricDevice, error) {
	if err := s.validator.Struct(input); err != nil {
		return models.BiometricDevice{}, err
	}

	device := models.BiometricDevice{
		DeviceID: input.DeviceID,
		Location: input.Location,
		IsActive: input.IsActive,
	}
	if err := s.devices.Register(ctx, &device); err != nil {
		return models.BiometricDevice{}, err
	}

	s.logger.Info().Str("device_id", device.DeviceID).Bool("active", device.IsActive).Msg("device registered")
	return device, nil
}

func (s *deviceService) MapSubject(ctx context.Context, deviceID string, input SubjectMappingInput) (models.DeviceSubjectMapping, error) {
	if err := s.validator.Struct(input); err != nil {
		return models.DeviceSubjectMapping{}, err
	}

	device, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DeviceSubjectMapping{}, ErrDeviceNotFound
		}
		return models.DeviceSubjectMapping{}, err
	}

	mapping := models.DeviceSubjectMapping{
		DeviceID:  device.ID,
		SubjectID: input.SubjectID,
		StudentID: input.StudentID,
	}
	if err := s.devices.MapSubject(ctx, &mapping); err != nil {
		return models.DeviceSubjectMapping{}, err
	}

	return mapping, nil
}
