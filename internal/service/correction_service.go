package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

var (
	// ErrCorrectionNotFound indicates the correction request does not exist.
	ErrCorrectionNotFound = errors.New("correction request not found")
	// ErrCorrectionNotPending indicates a decision on an already-finalized
	// request.
	ErrCorrectionNotPending = errors.New("correction request is no longer pending")
	// ErrPendingCorrectionExists indicates a pending request already covers
	// this (session, student).
	ErrPendingCorrectionExists = errors.New("a pending correction already exists for this record")
	// ErrRecordMissing indicates no attendance record exists to correct.
	ErrRecordMissing = errors.New("no attendance record exists for this student in this session")
	// ErrCorrectionNotAllowed indicates the caller may not act on this
	// request: students file only for their own record, faculty decide
	// only for sessions they own.
	ErrCorrectionNotAllowed = errors.New("caller may not act on this correction request")
)

// CorrectionService runs the pending→approved/rejected/cancelled workflow.
// Approval mutates the underlying record through the shared upsert path,
// attributed to the correction rather than the original channel.
type CorrectionService interface {
	Request(ctx context.Context, payload dto.CorrectionCreateRequest, requestedBy uint, role string) (dto.CorrectionResponse, error)
	Decide(ctx context.Context, id uint, payload dto.CorrectionDecideRequest, decidedBy uint, role string) (dto.CorrectionResponse, error)
	Get(ctx context.Context, id uint) (dto.CorrectionResponse, error)
	List(ctx context.Context, query dto.CorrectionListQuery) ([]dto.CorrectionResponse, int64, error)
}

type correctionService struct {
	corrections repository.CorrectionRepository
	records     repository.RecordRepository
	sessions    repository.SessionRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCorrectionService constructs a CorrectionService instance.
func NewCorrectionService(corrections repository.CorrectionRepository, records repository.RecordRepository, sessions repository.SessionRepository, validate *validator.Validate, logger zerolog.Logger) CorrectionService {
	return &correctionService{
		corrections: corrections,
		records:     records,
		sessions:    sessions,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "correction_service").Logger(),
		now:         time.Now,
	}
}

func (s *correctionService) Request(ctx context.Context, payload dto.CorrectionCreateRequest, requestedBy uint, role string) (dto.CorrectionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CorrectionResponse{}, err
	}

	// Students file corrections for their own record only.
	if role == "student" && payload.StudentID != requestedBy {
		return dto.CorrectionResponse{}, ErrCorrectionNotAllowed
	}

	session, err := s.sessions.GetByID(ctx, payload.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CorrectionResponse{}, ErrSessionNotFound
		}
		return dto.CorrectionResponse{}, err
	}
	if session.Status.Terminal() {
		return dto.CorrectionResponse{}, ErrSessionNotMarkable
	}

	record, err := s.records.GetBySessionStudent(ctx, payload.SessionID, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CorrectionResponse{}, ErrRecordMissing
		}
		return dto.CorrectionResponse{}, err
	}

	pending, err := s.corrections.HasPending(ctx, payload.SessionID, payload.StudentID)
	if err != nil {
		return dto.CorrectionResponse{}, err
	}
	if pending {
		return dto.CorrectionResponse{}, ErrPendingCorrectionExists
	}

	request := models.AttendanceCorrectionRequest{
		SessionID:   payload.SessionID,
		StudentID:   payload.StudentID,
		FromMark:    record.Mark,
		ToMark:      models.AttendanceMark(payload.ToMark),
		Reason:      s.sanitizer.Sanitize(payload.Reason),
		Status:      models.CorrectionStatusPending,
		RequestedBy: requestedBy,
	}
	if err := s.corrections.Create(ctx, &request); err != nil {
		return dto.CorrectionResponse{}, err
	}

	s.logger.Info().
		Uint("correction_id", request.ID).
		Uint("session_id", request.SessionID).
		Uint("student_id", request.StudentID).
		Msg("correction requested")
	return dto.NewCorrectionResponse(request), nil
}

// Decide finalizes a pending request. Approving a to_mark equal to the
// current mark is accepted as a no-op correction and still audited.
func (s *correctionService) Decide(ctx context.Context, id uint, payload dto.CorrectionDecideRequest, decidedBy uint, role string) (dto.CorrectionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CorrectionResponse{}, err
	}

	request, err := s.corrections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CorrectionResponse{}, ErrCorrectionNotFound
		}
		return dto.CorrectionResponse{}, err
	}
	if request.Status != models.CorrectionStatusPending {
		return dto.CorrectionResponse{}, ErrCorrectionNotPending
	}

	session, err := s.sessions.GetByID(ctx, request.SessionID)
	if err != nil {
		return dto.CorrectionResponse{}, err
	}
	// Faculty decide only requests on sessions they own.
	if role == "faculty" && session.FacultyID != decidedBy {
		return dto.CorrectionResponse{}, ErrCorrectionNotAllowed
	}

	decision := models.CorrectionStatus(payload.Decision)
	note := s.sanitizer.Sanitize(payload.Note)

	var applyMark *models.AttendanceRecord
	if decision == models.CorrectionStatusApproved {
		if session.Status.Terminal() {
			return dto.CorrectionResponse{}, ErrSessionNotMarkable
		}

		applyMark = &models.AttendanceRecord{
			SessionID: request.SessionID,
			StudentID: request.StudentID,
			Mark:      request.ToMark,
			Source:    models.SourceCorrection,
			MarkedAt:  s.now().UTC(),
			MarkedBy:  decidedBy,
			Reason:    request.Reason,
		}
	}

	decided, err := s.corrections.Decide(ctx, id, decision, decidedBy, note, applyMark)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return dto.CorrectionResponse{}, ErrCorrectionNotPending
		}
		return dto.CorrectionResponse{}, err
	}

	s.logger.Info().
		Uint("correction_id", decided.ID).
		Str("decision", string(decision)).
		Uint("decided_by", decidedBy).
		Msg("correction decided")
	return dto.NewCorrectionResponse(decided), nil
}

func (s *correctionService) Get(ctx context.Context, id uint) (dto.CorrectionResponse, error) {
	request, err := s.corrections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CorrectionResponse{}, ErrCorrectionNotFound
		}
		return dto.CorrectionResponse{}, err
	}
	return dto.NewCorrectionResponse(request), nil
}

func (s *correctionService) List(ctx context.Context, query dto.CorrectionListQuery) ([]dto.CorrectionResponse, int64, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, err
	}

	requests, total, err := s.corrections.List(ctx, repository.CorrectionFilter{
		SessionID: query.SessionID,
		StudentID: query.StudentID,
		Status:    models.CorrectionStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewCorrectionResponseSlice(requests), total, nil
}
