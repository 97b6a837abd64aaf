package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/observability"
	"github.com/campushq/attendance-api/internal/repository"
)

var (
	// ErrStudentNotEnrolled indicates the student is not actively enrolled
	// in the session's course section.
	ErrStudentNotEnrolled = errors.New("student is not enrolled in this course section")
	// ErrInvalidMark indicates an unsupported mark value.
	ErrInvalidMark = errors.New("invalid attendance mark")
	// ErrDeviceNotFound indicates an unknown or inactive biometric device.
	ErrDeviceNotFound = errors.New("biometric device not registered")
	// ErrSubjectUnmapped indicates the device subject id has no student
	// mapping.
	ErrSubjectUnmapped = errors.New("subject is not mapped to a student")
	// ErrStaleEvent indicates the event timestamp fell outside the
	// freshness window and was dropped.
	ErrStaleEvent = errors.New("event is older than the freshness window")
	// ErrNoMatchingSession indicates no markable session contains the
	// event timestamp for the resolved student.
	ErrNoMatchingSession = errors.New("no matching session for event")
)

// RecordService is the attendance record store: every channel (manual,
// bulk, QR, biometric, offline) converges on the same enrollment-checked,
// state-checked, audited upsert.
type RecordService interface {
	Mark(ctx context.Context, payload dto.MarkRequest, source models.MarkSource, actorID uint) (dto.RecordResponse, error)
	BulkMark(ctx context.Context, sessionID uint, payload dto.BulkMarkRequest, actorID uint) (dto.BulkMarkResponse, error)
	CheckInQR(ctx context.Context, payload dto.QRCheckInRequest, studentID uint) (dto.RecordResponse, error)
	SyncOffline(ctx context.Context, payload dto.OfflineSyncRequest, actorID uint) (dto.OfflineSyncResponse, error)
	IngestBiometricEvent(ctx context.Context, payload dto.BiometricEventRequest) (dto.RecordResponse, error)
	ListBySession(ctx context.Context, sessionID uint) ([]dto.RecordResponse, error)
}

type recordService struct {
	records     repository.RecordRepository
	sessions    repository.SessionRepository
	enrollments repository.EnrollmentRepository
	devices     repository.DeviceRepository
	lifecycle   LifecycleService
	settings    SettingsService
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewRecordService constructs a RecordService instance.
func NewRecordService(records repository.RecordRepository, sessions repository.SessionRepository, enrollments repository.EnrollmentRepository, devices repository.DeviceRepository, lifecycle LifecycleService, settings SettingsService, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) RecordService {
	return &recordService{
		records:     records,
		sessions:    sessions,
		enrollments: enrollments,
		devices:     devices,
		lifecycle:   lifecycle,
		settings:    settings,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "record_service").Logger(),
		tracer:      otel.Tracer("github.com/campushq/attendance-api/internal/service/records"),
		now:         time.Now,
	}
}

func (s *recordService) Mark(ctx context.Context, payload dto.MarkRequest, source models.MarkSource, actorID uint) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecordResponse{}, err
	}

	session, err := s.markableSession(ctx, payload.SessionID)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	record, err := s.applyMark(ctx, session, payload.StudentID, models.AttendanceMark(payload.Mark), source, actorID, payload.Reason, "")
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return dto.NewRecordResponse(record), nil
}

// BulkMark validates and applies each entry independently, collecting
// per-row errors instead of aborting the batch.
func (s *recordService) BulkMark(ctx context.Context, sessionID uint, payload dto.BulkMarkRequest, actorID uint) (dto.BulkMarkResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkMarkResponse{}, err
	}

	session, err := s.markableSession(ctx, sessionID)
	if err != nil {
		return dto.BulkMarkResponse{}, err
	}

	response := dto.BulkMarkResponse{Errors: []dto.BulkEntryError{}}
	for _, entry := range payload.Entries {
		_, err := s.applyMark(ctx, session, entry.StudentID, models.AttendanceMark(entry.Mark), models.SourceManual, actorID, entry.Reason, "")
		if err != nil {
			response.Errors = append(response.Errors, dto.BulkEntryError{StudentID: entry.StudentID, Error: err.Error()})
			continue
		}
		response.Applied++
	}
	return response, nil
}

// CheckInQR marks the authenticated student present in the session the
// scanned token resolves to.
func (s *recordService) CheckInQR(ctx context.Context, payload dto.QRCheckInRequest, studentID uint) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecordResponse{}, err
	}

	session, err := s.lifecycle.ValidateQR(ctx, payload.Token)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	record, err := s.applyMark(ctx, session, studentID, models.MarkPresent, models.SourceQR, studentID, "", "")
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return dto.NewRecordResponse(record), nil
}

// SyncOffline replays locally-queued marks. The client uuid rides along as
// the record's correlation id, and the (session, student) upsert makes a
// re-sent batch converge instead of duplicating rows.
func (s *recordService) SyncOffline(ctx context.Context, payload dto.OfflineSyncRequest, actorID uint) (dto.OfflineSyncResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OfflineSyncResponse{}, err
	}

	response := dto.OfflineSyncResponse{Errors: []dto.OfflineSyncError{}}
	for _, item := range payload.Records {
		session, err := s.markableSession(ctx, item.SessionID)
		if err != nil {
			response.Errors = append(response.Errors, dto.OfflineSyncError{ClientUUID: item.ClientUUID, Error: err.Error()})
			continue
		}

		_, err = s.applyMark(ctx, session, item.StudentID, models.AttendanceMark(item.Mark), models.SourceOffline, actorID, item.Reason, item.ClientUUID)
		if err != nil {
			response.Errors = append(response.Errors, dto.OfflineSyncError{ClientUUID: item.ClientUUID, Error: err.Error()})
			continue
		}
		response.Synced++
	}
	return response, nil
}

// IngestBiometricEvent resolves a vendor check-in event to a student and
// session and applies a present mark. Stale events are dropped; redelivery
// of the same vendor event converges through the upsert.
func (s *recordService) IngestBiometricEvent(ctx context.Context, payload dto.BiometricEventRequest) (dto.RecordResponse, error) {
	ctx, span := s.tracer.Start(ctx, "records.ingest_biometric",
		trace.WithAttributes(
			attribute.String("device_id", payload.DeviceID),
			attribute.String("vendor_event_id", payload.VendorEventID),
		))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		observability.WebhookRejections().WithLabelValues("validation").Inc()
		return dto.RecordResponse{}, err
	}

	freshness := s.settings.BiometricFreshness(ctx)
	if s.now().UTC().Sub(payload.Timestamp.UTC()) > freshness {
		observability.WebhookRejections().WithLabelValues("stale").Inc()
		s.logger.Warn().
			Str("device_id", payload.DeviceID).
			Str("vendor_event_id", payload.VendorEventID).
			Time("timestamp", payload.Timestamp).
			Msg("stale biometric event dropped")
		return dto.RecordResponse{}, ErrStaleEvent
	}

	device, err := s.devices.GetByDeviceID(ctx, payload.DeviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.WebhookRejections().WithLabelValues("unknown_device").Inc()
			return dto.RecordResponse{}, ErrDeviceNotFound
		}
		return dto.RecordResponse{}, err
	}
	if !device.IsActive {
		observability.WebhookRejections().WithLabelValues("unknown_device").Inc()
		return dto.RecordResponse{}, ErrDeviceNotFound
	}

	studentID, err := s.devices.ResolveSubject(ctx, payload.DeviceID, payload.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.WebhookRejections().WithLabelValues("unmapped_subject").Inc()
			return dto.RecordResponse{}, ErrSubjectUnmapped
		}
		return dto.RecordResponse{}, err
	}

	session, err := s.sessions.FindMarkableForStudentAt(ctx, studentID, payload.Timestamp.UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.WebhookRejections().WithLabelValues("no_session").Inc()
			return dto.RecordResponse{}, ErrNoMatchingSession
		}
		return dto.RecordResponse{}, err
	}

	record, err := s.applyMark(ctx, session, studentID, models.MarkPresent, models.SourceBiometric, 0, "", payload.VendorEventID)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	span.SetAttributes(attribute.Int("session_id", int(session.ID)))
	return dto.NewRecordResponse(record), nil
}

func (s *recordService) ListBySession(ctx context.Context, sessionID uint) ([]dto.RecordResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return dto.NewRecordResponseSlice(records), nil
}

func (s *recordService) markableSession(ctx context.Context, sessionID uint) (models.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}
	if !session.Markable() {
		return models.AttendanceSession{}, ErrSessionNotMarkable
	}
	return session, nil
}

// applyMark is the single write path shared by every channel: enrollment
// check, then the audited (session, student) upsert, then event/metric
// emission.
func (s *recordService) applyMark(ctx context.Context, session models.AttendanceSession, studentID uint, mark models.AttendanceMark, source models.MarkSource, actorID uint, reason, correlationID string) (models.AttendanceRecord, error) {
	if !mark.Valid() {
		return models.AttendanceRecord{}, ErrInvalidMark
	}

	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, studentID, session.CourseSectionID)
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("enrollment check failed: %w", err)
	}
	if !enrolled {
		return models.AttendanceRecord{}, ErrStudentNotEnrolled
	}

	record := models.AttendanceRecord{
		SessionID:     session.ID,
		StudentID:     studentID,
		Mark:          mark,
		Source:        source,
		MarkedAt:      s.now().UTC(),
		MarkedBy:      actorID,
		Reason:        s.sanitizer.Sanitize(reason),
		CorrelationID: correlationID,
	}

	if err := s.records.Upsert(ctx, &record, actorID); err != nil {
		return models.AttendanceRecord{}, err
	}

	observability.MarksRecorded().WithLabelValues(string(source), string(mark)).Inc()
	s.events.RecordMarked(record)
	return record, nil
}
