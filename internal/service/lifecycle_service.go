package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/observability"
	"github.com/campushq/attendance-api/internal/repository"
)

var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrIllegalTransition indicates the requested state change is not
	// allowed from the session's current status.
	ErrIllegalTransition = errors.New("illegal session state transition")
	// ErrSessionNotMarkable indicates the session does not accept mark
	// mutations in its current state.
	ErrSessionNotMarkable = errors.New("session must be open or closed for marking attendance")
)

// LifecycleService owns the session state machine
// (scheduled→open→closed→locked, cancelled) and QR token issuance.
type LifecycleService interface {
	Open(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error)
	Close(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error)
	Lock(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error)
	Cancel(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error)
	AutoOpenSweep(ctx context.Context) (int, error)
	AutoCloseSweep(ctx context.Context) (int, error)
	ValidateQR(ctx context.Context, token string) (models.AttendanceSession, error)
	CleanupOldData(ctx context.Context) (int64, error)
}

type lifecycleService struct {
	sessions    repository.SessionRepository
	records     repository.RecordRepository
	enrollments repository.EnrollmentRepository
	settings    SettingsService
	qr          *QRTokenManager
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewLifecycleService constructs a LifecycleService instance.
func NewLifecycleService(sessions repository.SessionRepository, records repository.RecordRepository, enrollments repository.EnrollmentRepository, settings SettingsService, qr *QRTokenManager, events EventPublisher, logger zerolog.Logger) LifecycleService {
	return &lifecycleService{
		sessions:    sessions,
		records:     records,
		enrollments: enrollments,
		settings:    settings,
		qr:          qr,
		events:      events,
		logger:      logger.With().Str("component", "lifecycle_service").Logger(),
		now:         time.Now,
	}
}

func (s *lifecycleService) Open(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error) {
	session, err := s.transition(ctx, sessionID, models.SessionStatusOpen, nil, actorID, "manual")
	if err != nil {
		return models.AttendanceSession{}, err
	}
	s.issueQRToken(ctx, &session)
	return session, nil
}

func (s *lifecycleService) Close(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error) {
	session, err := s.transition(ctx, sessionID, models.SessionStatusClosed, nil, actorID, "manual")
	if err != nil {
		return models.AttendanceSession{}, err
	}
	s.backfillAbsentees(ctx, session)
	return session, nil
}

func (s *lifecycleService) Lock(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error) {
	return s.transition(ctx, sessionID, models.SessionStatusLocked, nil, actorID, "manual")
}

func (s *lifecycleService) Cancel(ctx context.Context, sessionID, actorID uint) (models.AttendanceSession, error) {
	return s.transition(ctx, sessionID, models.SessionStatusCancelled, nil, actorID, "manual")
}

// transition loads the session for a friendly precondition error, then
// delegates to the repository's guarded update. The guard re-checks status
// inside the transaction, so a concurrent transition surfaces as
// ErrStateConflict and is mapped to the same ErrIllegalTransition.
func (s *lifecycleService) transition(ctx context.Context, sessionID uint, to models.SessionStatus, extra map[string]interface{}, actorID uint, trigger string) (models.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}

	if !session.CanTransitionTo(to) {
		return models.AttendanceSession{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.Status, to)
	}
	from := session.Status

	updated, err := s.sessions.Transition(ctx, sessionID, allowedSources(to), to, extra, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return models.AttendanceSession{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.Status, to)
		}
		return models.AttendanceSession{}, err
	}

	observability.SessionTransitions().WithLabelValues(string(to), trigger).Inc()
	s.events.SessionTransitioned(updated, from)
	s.logger.Info().
		Uint("session_id", sessionID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("trigger", trigger).
		Msg("session transitioned")
	return updated, nil
}

func allowedSources(to models.SessionStatus) []models.SessionStatus {
	switch to {
	case models.SessionStatusOpen:
		return []models.SessionStatus{models.SessionStatusScheduled}
	case models.SessionStatusClosed:
		return []models.SessionStatus{models.SessionStatusOpen}
	case models.SessionStatusLocked:
		return []models.SessionStatus{models.SessionStatusClosed}
	case models.SessionStatusCancelled:
		return []models.SessionStatus{models.SessionStatusScheduled, models.SessionStatusOpen}
	default:
		return nil
	}
}

// AutoOpenSweep opens every scheduled session whose start time falls within
// the grace window. Sessions already past the transition are skipped by the
// status guard, so re-running the sweep never re-fires side effects.
func (s *lifecycleService) AutoOpenSweep(ctx context.Context) (int, error) {
	if !s.settings.AutoOpenEnabled(ctx) {
		return 0, nil
	}

	grace := s.settings.GracePeriod(ctx)
	due, err := s.sessions.ListDueForOpen(ctx, s.now().UTC(), grace)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions due for open: %w", err)
	}

	opened := 0
	for _, session := range due {
		updated, err := s.sessions.Transition(ctx, session.ID,
			[]models.SessionStatus{models.SessionStatusScheduled},
			models.SessionStatusOpen,
			map[string]interface{}{"auto_opened": true}, 0)
		if err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				continue
			}
			s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("auto-open failed")
			continue
		}

		observability.SessionTransitions().WithLabelValues(string(models.SessionStatusOpen), "auto").Inc()
		s.events.SessionTransitioned(updated, models.SessionStatusScheduled)
		s.issueQRToken(ctx, &updated)
		opened++
	}
	return opened, nil
}

// AutoCloseSweep closes open sessions whose end time plus grace has passed
// and backfills absent records for enrollment added after creation.
func (s *lifecycleService) AutoCloseSweep(ctx context.Context) (int, error) {
	if !s.settings.AutoCloseEnabled(ctx) {
		return 0, nil
	}

	grace := s.settings.GracePeriod(ctx)
	due, err := s.sessions.ListDueForClose(ctx, s.now().UTC(), grace)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions due for close: %w", err)
	}

	closed := 0
	for _, session := range due {
		updated, err := s.sessions.Transition(ctx, session.ID,
			[]models.SessionStatus{models.SessionStatusOpen},
			models.SessionStatusClosed,
			map[string]interface{}{"auto_closed": true}, 0)
		if err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				continue
			}
			s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("auto-close failed")
			continue
		}

		observability.SessionTransitions().WithLabelValues(string(models.SessionStatusClosed), "auto").Inc()
		s.events.SessionTransitioned(updated, models.SessionStatusOpen)
		s.backfillAbsentees(ctx, updated)
		closed++
	}
	return closed, nil
}

// issueQRToken attaches a signed check-in token to a freshly opened
// session when self check-in is enabled. Token expiry follows the
// configured TTL, defaulting to the session end.
func (s *lifecycleService) issueQRToken(ctx context.Context, session *models.AttendanceSession) {
	if !s.settings.QRSelfMarkEnabled(ctx) {
		return
	}

	expiresAt := session.EndsAt
	if ttl := s.settings.QRTokenTTL(ctx); ttl > 0 {
		expiresAt = s.now().UTC().Add(ttl)
	}

	token, err := s.qr.Issue(session.ID, expiresAt)
	if err != nil {
		s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("failed to issue qr token")
		return
	}
	if err := s.sessions.SetQRToken(ctx, session.ID, token, expiresAt); err != nil {
		s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("failed to store qr token")
		return
	}
	session.QRToken = token
	session.QRExpiresAt = &expiresAt
}

// backfillAbsentees creates default absent records for enrolled students
// who still lack one. Normally a no-op given creation-time fan-out; guards
// against enrollment changes after the session was created.
func (s *lifecycleService) backfillAbsentees(ctx context.Context, session models.AttendanceSession) {
	if !s.settings.AutoMarkAbsentEnabled(ctx) {
		return
	}

	enrollments, err := s.enrollments.ListActiveBySection(ctx, session.CourseSectionID)
	if err != nil {
		s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("enrollment lookup failed during backfill")
		return
	}

	now := s.now().UTC()
	records := make([]models.AttendanceRecord, 0, len(enrollments))
	for _, enrollment := range enrollments {
		records = append(records, models.AttendanceRecord{
			SessionID: session.ID,
			StudentID: enrollment.StudentID,
			Mark:      models.MarkAbsent,
			Source:    models.SourceSystem,
			MarkedAt:  now,
		})
	}

	inserted, err := s.records.InsertMissing(ctx, records)
	if err != nil {
		s.logger.Error().Err(err).Uint("session_id", session.ID).Msg("absentee backfill failed")
		return
	}
	if inserted > 0 {
		s.logger.Info().Uint("session_id", session.ID).Int64("inserted", inserted).Msg("backfilled absent records")
	}
}

// ValidateQR resolves a scanned token to its session. Rejections carry
// distinct errors for expiry, bad signature, missing session, and sessions
// no longer accepting marks.
func (s *lifecycleService) ValidateQR(ctx context.Context, token string) (models.AttendanceSession, error) {
	sessionID, err := s.qr.Verify(token)
	if err != nil {
		return models.AttendanceSession{}, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}

	if session.QRExpiresAt != nil && s.now().UTC().After(*session.QRExpiresAt) {
		return models.AttendanceSession{}, ErrQRTokenExpired
	}
	if !session.Markable() {
		return models.AttendanceSession{}, ErrSessionNotMarkable
	}
	return session, nil
}

// CleanupOldData removes sessions (and dependent rows) past the configured
// retention horizon.
func (s *lifecycleService) CleanupOldData(ctx context.Context) (int64, error) {
	years := s.settings.RetentionYears(ctx)
	if years <= 0 {
		return 0, nil
	}

	cutoff := s.now().UTC().AddDate(-years, 0, 0)
	removed, err := s.sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup failed: %w", err)
	}
	if removed > 0 {
		s.logger.Info().Int64("sessions_removed", removed).Str("cutoff", cutoff.Format("2006-01-02")).Msg("retention cleanup completed")
	}
	return removed, nil
}
