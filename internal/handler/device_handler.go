package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// DeviceHandler manages the biometric terminal registry.
type DeviceHandler struct {
	devices service.DeviceService
	logger  zerolog.Logger
}

// NewDeviceHandler constructs the handler.
func NewDeviceHandler(devices service.DeviceService, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
		logger:  logger.With().Str("component", "device_handler").Logger(),
	}
}

// Register attaches device registry routes.
func (h *DeviceHandler) Register(router fiber.Router) {
	router.Post("", h.register)
	router.Post("/:device_id/mappings", h.mapSubject)
}

type deviceRegisterPayload struct {
	DeviceID string `json:"device_id"`
	Location string `json:"location"`
	IsActive *bool  `json:"is_active"`
}

func (h *DeviceHandler) register(c *fiber.Ctx) error {
	var payload deviceRegisterPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	device, err := h.devices.Register(c.Context(), service.DeviceRegisterInput{
		DeviceID: payload.DeviceID,
		Location: payload.Location,
		IsActive: active,
	})
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to register device")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to register device")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "device registered", device)
}

type subjectMappingPayload struct {
	SubjectID string `json:"subject_id"`
	StudentID uint   `json:"student_id"`
}

func (h *DeviceHandler) mapSubject(c *fiber.Ctx) error {
	deviceID := c.Params("device_id")
	if deviceID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid device id")
	}

	var payload subjectMappingPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	mapping, err := h.devices.MapSubject(c.Context(), deviceID, service.SubjectMappingInput{
		SubjectID: payload.SubjectID,
		StudentID: payload.StudentID,
	})
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDeviceNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "device not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("device_id", deviceID).Msg("failed to map subject")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to map subject")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "subject mapped", mapping)
}
