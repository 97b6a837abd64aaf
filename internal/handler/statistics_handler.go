package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// StatisticsHandler serves attendance rollups and eligibility flags.
type StatisticsHandler struct {
	statistics service.StatisticsService
	logger     zerolog.Logger
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(statistics service.StatisticsService, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		statistics: statistics,
		logger:     logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// Register attaches statistics routes.
func (h *StatisticsHandler) Register(router fiber.Router) {
	router.Get("/students/:id", h.byStudent)
	router.Post("/recompute", h.recompute)
}

func (h *StatisticsHandler) byStudent(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	// Students may only read their own rollups.
	if userRoleFromContext(c) == "student" && userIDFromContext(c) != studentID {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	rows, err := h.statistics.ListByStudent(c.Context(), studentID, c.Query("period"))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("student_id", studentID).Msg("failed to load statistics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load statistics")
	}

	return utils.SendSuccess(c, "statistics retrieved", rows)
}

func (h *StatisticsHandler) recompute(c *fiber.Ctx) error {
	var payload dto.RecomputeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	updated, err := h.statistics.Recompute(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("statistics recompute failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "statistics recompute failed")
	}

	return utils.SendSuccess(c, "statistics recomputed", dto.RecomputeResponse{Updated: updated})
}
