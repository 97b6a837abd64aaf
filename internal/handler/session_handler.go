package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/utils"
)

// SessionHandler manages attendance session routes: listing, ad-hoc
// creation, timetable materialization and lifecycle transitions.
type SessionHandler struct {
	queries      service.SessionQueryService
	materializer service.MaterializerService
	lifecycle    service.LifecycleService
	records      service.RecordService
	logger       zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(queries service.SessionQueryService, materializer service.MaterializerService, lifecycle service.LifecycleService, records service.RecordService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		queries:      queries,
		materializer: materializer,
		lifecycle:    lifecycle,
		records:      records,
		logger:       logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.createAdHoc)
	router.Post("/generate", h.generate)
	router.Get("/:id", h.get)
	router.Get("/:id/records", h.listRecords)
	router.Post("/:id/records/bulk", h.bulkMark)
	router.Post("/:id/open", h.transition(models.SessionStatusOpen))
	router.Post("/:id/close", h.transition(models.SessionStatusClosed))
	router.Post("/:id/lock", h.transition(models.SessionStatusLocked))
	router.Post("/:id/cancel", h.transition(models.SessionStatusCancelled))
}

func (h *SessionHandler) list(c *fiber.Ctx) error {
	var query dto.SessionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	sessions, total, err := h.queries.List(c.Context(), query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list sessions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list sessions")
	}

	includeQR := canSeeQR(c)
	return utils.SendSuccess(c, "sessions retrieved", fiber.Map{
		"items": dto.NewSessionResponseSlice(sessions, includeQR),
		"total": total,
	})
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	session, err := h.queries.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("session_id", id).Msg("failed to load session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load session")
	}

	return utils.SendSuccess(c, "session retrieved", dto.NewSessionResponse(session, canSeeQR(c)))
}

func (h *SessionHandler) createAdHoc(c *fiber.Ctx) error {
	var payload dto.AdHocSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	startsAt, err := time.Parse(time.RFC3339, payload.StartsAt)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid starts_at")
	}
	endsAt, err := time.Parse(time.RFC3339, payload.EndsAt)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ends_at")
	}

	session := models.AttendanceSession{
		CourseSectionID: payload.CourseSectionID,
		FacultyID:       payload.FacultyID,
		StartsAt:        startsAt.UTC(),
		EndsAt:          endsAt.UTC(),
		Room:            payload.Room,
	}

	if err := h.materializer.CreateAdHocSession(c.Context(), &session); err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrInvalidDateRange):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrStateConflict):
			return utils.SendError(c, fiber.StatusConflict, "an identical session already exists")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to create session")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create session")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", dto.NewSessionResponse(session, canSeeQR(c)))
}

func (h *SessionHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateSessionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	start, err := time.Parse("2006-01-02", payload.StartDate)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid start_date")
	}
	end, err := time.Parse("2006-01-02", payload.EndDate)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid end_date")
	}

	created, err := h.materializer.GenerateSessions(c.Context(), start, end, payload.SectionIDs)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("session generation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "session generation failed")
	}

	return utils.SendSuccess(c, "sessions generated", dto.GenerateSessionsResponse{Created: created})
}

func (h *SessionHandler) listRecords(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	records, err := h.records.ListBySession(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("session_id", id).Msg("failed to list records")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list records")
	}

	return utils.SendSuccess(c, "records retrieved", records)
}

func (h *SessionHandler) bulkMark(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	var payload dto.BulkMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.records.BulkMark(c.Context(), id, payload, userIDFromContext(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrSessionNotMarkable):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("session_id", id).Msg("bulk mark failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "bulk mark failed")
		}
	}

	return utils.SendSuccess(c, "bulk mark completed", result)
}

func (h *SessionHandler) transition(to models.SessionStatus) fiber.Handler {
	var verb string
	var apply func(context.Context, uint, uint) (models.AttendanceSession, error)

	switch to {
	case models.SessionStatusOpen:
		verb, apply = "opened", h.lifecycle.Open
	case models.SessionStatusClosed:
		verb, apply = "closed", h.lifecycle.Close
	case models.SessionStatusLocked:
		verb, apply = "locked", h.lifecycle.Lock
	case models.SessionStatusCancelled:
		verb, apply = "cancelled", h.lifecycle.Cancel
	}

	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
		}

		session, err := apply(c.Context(), id, userIDFromContext(c))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionNotFound):
				return utils.SendError(c, fiber.StatusNotFound, "session not found")
			case errors.Is(err, service.ErrIllegalTransition):
				return utils.SendError(c, fiber.StatusConflict, err.Error())
			default:
				requestLogger(h.logger, c).Error().Err(err).Uint("session_id", id).Str("to", string(to)).Msg("transition failed")
				return utils.SendError(c, fiber.StatusInternalServerError, "transition failed")
			}
		}

		return utils.SendSuccess(c, "session "+verb, dto.NewSessionResponse(session, canSeeQR(c)))
	}
}

// canSeeQR reports whether the caller may read the session QR token.
// Students self-marking only ever submit tokens, never read them.
func canSeeQR(c *fiber.Ctx) bool {
	role := userRoleFromContext(c)
	return role == "admin" || role == "faculty"
}
