package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// TimetableHandler manages timetable slots and the holiday calendar.
type TimetableHandler struct {
	timetable service.TimetableService
	logger    zerolog.Logger
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetable service.TimetableService, logger zerolog.Logger) *TimetableHandler {
	return &TimetableHandler{
		timetable: timetable,
		logger:    logger.With().Str("component", "timetable_handler").Logger(),
	}
}

// Register attaches slot routes.
func (h *TimetableHandler) Register(router fiber.Router) {
	router.Get("/slots", h.listSlots)
	router.Post("/slots", h.createSlot)
	router.Patch("/slots/:id", h.updateSlot)
}

// RegisterCalendar attaches holiday calendar routes.
func (h *TimetableHandler) RegisterCalendar(router fiber.Router) {
	router.Get("/holidays", h.listHolidays)
	router.Post("/holidays", h.createHoliday)
}

func (h *TimetableHandler) listSlots(c *fiber.Ctx) error {
	slots, err := h.timetable.ListSlots(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list slots")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list slots")
	}

	return utils.SendSuccess(c, "slots retrieved", slots)
}

func (h *TimetableHandler) createSlot(c *fiber.Ctx) error {
	var payload dto.SlotCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.timetable.CreateSlot(c.Context(), payload)
	if err != nil {
		return h.sendSlotError(c, err, "failed to create slot")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slot created", slot)
}

func (h *TimetableHandler) updateSlot(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid slot id")
	}

	var payload dto.SlotUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.timetable.UpdateSlot(c.Context(), id, payload)
	if err != nil {
		return h.sendSlotError(c, err, "failed to update slot")
	}

	return utils.SendSuccess(c, "slot updated", slot)
}

func (h *TimetableHandler) sendSlotError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrInvalidSlotTimes):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "slot not found")
	case errors.Is(err, service.ErrSlotOverlap):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func (h *TimetableHandler) listHolidays(c *fiber.Ctx) error {
	holidays, err := h.timetable.ListHolidays(c.Context(), c.Query("academic_year"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list holidays")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list holidays")
	}

	return utils.SendSuccess(c, "holidays retrieved", holidays)
}

func (h *TimetableHandler) createHoliday(c *fiber.Ctx) error {
	var payload dto.HolidayCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	holiday, err := h.timetable.AddHoliday(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create holiday")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create holiday")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "holiday created", holiday)
}
