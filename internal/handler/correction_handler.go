package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// CorrectionHandler manages the mark correction workflow.
type CorrectionHandler struct {
	corrections service.CorrectionService
	logger      zerolog.Logger
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(corrections service.CorrectionService, logger zerolog.Logger) *CorrectionHandler {
	return &CorrectionHandler{
		corrections: corrections,
		logger:      logger.With().Str("component", "correction_handler").Logger(),
	}
}

// Register attaches the staff-only read routes. Create and decide are
// registered separately because their role guards differ: students may
// file requests for their own record, and faculty may decide requests
// for sessions they own.
func (h *CorrectionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

// RegisterCreate attaches the request route.
func (h *CorrectionHandler) RegisterCreate(router fiber.Router) {
	router.Post("", h.create)
}

// RegisterDecide attaches the approval route.
func (h *CorrectionHandler) RegisterDecide(router fiber.Router) {
	router.Post("/:id/decide", h.decide)
}

func (h *CorrectionHandler) create(c *fiber.Ctx) error {
	var payload dto.CorrectionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	correction, err := h.corrections.Request(c.Context(), payload, userIDFromContext(c), userRoleFromContext(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCorrectionNotAllowed):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrRecordMissing):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrPendingCorrectionExists):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to create correction request")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create correction request")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "correction requested", correction)
}

func (h *CorrectionHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid correction id")
	}

	var payload dto.CorrectionDecideRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	correction, err := h.corrections.Decide(c.Context(), id, payload, userIDFromContext(c), userRoleFromContext(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCorrectionNotAllowed):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrCorrectionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "correction request not found")
		case errors.Is(err, service.ErrCorrectionNotPending), errors.Is(err, service.ErrSessionNotMarkable):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("correction_id", id).Msg("failed to decide correction")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to decide correction")
		}
	}

	return utils.SendSuccess(c, "correction decided", correction)
}

func (h *CorrectionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid correction id")
	}

	correction, err := h.corrections.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCorrectionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "correction request not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("correction_id", id).Msg("failed to load correction")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load correction")
	}

	return utils.SendSuccess(c, "correction retrieved", correction)
}

func (h *CorrectionHandler) list(c *fiber.Ctx) error {
	var query dto.CorrectionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	corrections, total, err := h.corrections.List(c.Context(), query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list corrections")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list corrections")
	}

	return utils.SendSuccess(c, "corrections retrieved", fiber.Map{
		"items": corrections,
		"total": total,
	})
}
