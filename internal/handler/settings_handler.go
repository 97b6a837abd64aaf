package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// SettingsHandler exposes runtime attendance settings to administrators.
type SettingsHandler struct {
	settings service.SettingsService
	logger   zerolog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(settings service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("", h.update)
}

func (h *SettingsHandler) list(c *fiber.Ctx) error {
	settings, err := h.settings.List(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list settings")
	}

	return utils.SendSuccess(c, "settings retrieved", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var payload dto.SettingUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.settings.Set(c.Context(), payload.Key, payload.Value, userIDFromContext(c)); err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrUnknownSettingKey):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("key", payload.Key).Msg("failed to update setting")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update setting")
		}
	}

	return utils.SendSuccess(c, "setting updated", fiber.Map{"key": payload.Key, "value": payload.Value})
}
