package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// WebhookHandler ingests push events from external device integrations.
type WebhookHandler struct {
	records service.RecordService
	logger  zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(records service.RecordService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		records: records,
		logger:  logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// Register attaches webhook routes.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/biometric", h.biometric)
}

// biometric accepts a vendor event and answers 202 once it is attributed.
// Rejections carry a structured reason so the vendor can distinguish
// payload faults from unresolvable subjects.
func (h *WebhookHandler) biometric(c *fiber.Ctx) error {
	var payload dto.BiometricEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendWebhookRejection(c, "malformed_payload", "invalid payload")
	}

	record, err := h.records.IngestBiometricEvent(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return sendWebhookRejection(c, "validation", err.Error())
		case errors.Is(err, service.ErrStaleEvent):
			return sendWebhookRejection(c, "stale", err.Error())
		case errors.Is(err, service.ErrDeviceNotFound):
			return sendWebhookRejection(c, "unknown_device", err.Error())
		case errors.Is(err, service.ErrSubjectUnmapped):
			return sendWebhookRejection(c, "unmapped_subject", err.Error())
		case errors.Is(err, service.ErrNoMatchingSession):
			return sendWebhookRejection(c, "no_session", err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).
				Str("device_id", payload.DeviceID).
				Str("vendor_event_id", payload.VendorEventID).
				Msg("biometric ingestion failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "biometric ingestion failed")
		}
	}

	return utils.SendAccepted(c, "event accepted", record)
}

func sendWebhookRejection(c *fiber.Ctx, reason, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"reason":  reason,
		"message": message,
	})
}
