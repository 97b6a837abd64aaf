package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// AttendanceHandler serves marking endpoints: manual single marks, student
// QR check-in and offline batch sync.
type AttendanceHandler struct {
	records service.RecordService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(records service.RecordService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		records: records,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches marking routes.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("/mark", h.mark)
	router.Post("/sync", h.sync)
}

// RegisterCheckIn attaches the student self check-in route; it carries its
// own registration because it sits behind a different role guard.
func (h *AttendanceHandler) RegisterCheckIn(router fiber.Router) {
	router.Post("/checkin", h.checkIn)
}

func (h *AttendanceHandler) mark(c *fiber.Ctx) error {
	var payload dto.MarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.records.Mark(c.Context(), payload, models.SourceManual, userIDFromContext(c))
	if err != nil {
		return h.sendMarkError(c, err, "failed to record mark")
	}

	return utils.SendSuccess(c, "attendance marked", record)
}

func (h *AttendanceHandler) checkIn(c *fiber.Ctx) error {
	var payload dto.QRCheckInRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unknown student identity")
	}

	record, err := h.records.CheckInQR(c.Context(), payload, studentID)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQRTokenExpired):
			return utils.SendError(c, fiber.StatusGone, err.Error())
		case errors.Is(err, service.ErrQRTokenInvalid):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrSessionNotMarkable):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrStudentNotEnrolled):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("qr check-in failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "qr check-in failed")
		}
	}

	return utils.SendSuccess(c, "checked in", record)
}

func (h *AttendanceHandler) sync(c *fiber.Ctx) error {
	var payload dto.OfflineSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.records.SyncOffline(c.Context(), payload, userIDFromContext(c))
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("offline sync failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "offline sync failed")
	}

	return utils.SendSuccess(c, "offline records synced", result)
}

func (h *AttendanceHandler) sendMarkError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrInvalidMark):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSessionNotMarkable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStudentNotEnrolled):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
