package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

// SessionQueryService serves read access to attendance sessions.
type SessionQueryService interface {
	Get(ctx context.Context, id uint) (models.AttendanceSession, error)
	List(ctx context.Context, query dto.SessionListQuery) ([]models.AttendanceSession, int64, error)
}

type sessionQueryService struct {
	sessions  repository.SessionRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionQueryService constructs a SessionQueryService instance.
func NewSessionQueryService(sessions repository.SessionRepository, validate *validator.Validate, logger zerolog.Logger) SessionQueryService {
	return &sessionQueryService{
		sessions:  sessions,
		validator: validate,
		logger:    logger.With().Str("component", "session_query_service").Logger(),
	}
}

func (s *sessionQueryService) Get(ctx context.Context, id uint) (models.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}
	return session, nil
}

func (s *sessionQueryService) List(ctx context.Context, query dto.SessionListQuery) ([]models.AttendanceSession, int64, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, err
	}

	filter := repository.SessionFilter{
		CourseSectionID: query.CourseSectionID,
		FacultyID:       query.FacultyID,
		Status:          models.SessionStatus(query.Status),
		Page:            query.Page,
		PageSize:        query.PageSize,
	}
	if filter.PageSize == 0 {
		filter.PageSize = 50
	}

	if query.DateFrom != "" {
		from, err := time.Parse("2006-01-02", query.DateFrom)
		if err == nil {
			filter.DateFrom = &from
		}
	}
	if query.DateTo != "" {
		to, err := time.Parse("2006-01-02", query.DateTo)
		if err == nil {
			filter.DateTo = &to
		}
	}

	return s.sessions.List(ctx, filter)
}
