package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/attendance-api/internal/models"
)

// SessionFilter describes listing options for attendance sessions.
type SessionFilter struct {
	CourseSectionID uint
	FacultyID       uint
	Status          models.SessionStatus
	DateFrom        *time.Time
	DateTo          *time.Time
	Page            int
	PageSize        int
}

// SessionRepository defines persistence operations for attendance sessions.
type SessionRepository interface {
	GetByID(ctx context.Context, id uint) (models.AttendanceSession, error)
	List(ctx context.Context, filter SessionFilter) ([]models.AttendanceSession, int64, error)
	CreateWithRecords(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) (bool, error)
	Transition(ctx context.Context, id uint, from []models.SessionStatus, to models.SessionStatus, extra map[string]interface{}, actorID uint) (models.AttendanceSession, error)
	SetQRToken(ctx context.Context, id uint, token string, expiresAt time.Time) error
	ListDueForOpen(ctx context.Context, now time.Time, grace time.Duration) ([]models.AttendanceSession, error)
	ListDueForClose(ctx context.Context, now time.Time, grace time.Duration) ([]models.AttendanceSession, error)
	FindMarkableForStudentAt(ctx context.Context, studentID uint, at time.Time) (models.AttendanceSession, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates a GORM-backed session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.AttendanceSession, error) {
	var session models.AttendanceSession
	if err := r.db.WithContext(ctx).Preload("CourseSection").First(&session, id).Error; err != nil {
		return models.AttendanceSession{}, err
	}
	return session, nil
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]models.AttendanceSession, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AttendanceSession{})

	if filter.CourseSectionID != 0 {
		query = query.Where("course_section_id = ?", filter.CourseSectionID)
	}
	if filter.FacultyID != 0 {
		query = query.Where("faculty_id = ?", filter.FacultyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("scheduled_date >= ?", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		query = query.Where("scheduled_date <= ?", filter.DateTo.Format("2006-01-02"))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var sessions []models.AttendanceSession
	if err := query.Order("starts_at ASC").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// CreateWithRecords inserts the session and its per-student record fan-out
// in one transaction. The insert uses ON CONFLICT DO NOTHING so a racing
// creator observes RowsAffected == 0 and skips the fan-out; returns true
// only when this call created the session.
func (r *sessionRepository) CreateWithRecords(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(session)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		for i := range records {
			records[i].SessionID = session.ID
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}

		return appendAuditTx(tx, models.AttendanceAuditLog{
			EntityType: "attendance_session",
			EntityID:   session.ID,
			Action:     models.AuditActionCreate,
			Source:     string(models.SourceSystem),
			After:      sessionSnapshot(*session),
		})
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Transition performs a guarded status change. The precondition check and
// the UPDATE share one transaction, and the UPDATE itself re-checks the
// current status so two concurrent sweeps cannot both fire; the loser gets
// ErrStateConflict.
func (r *sessionRepository) Transition(ctx context.Context, id uint, from []models.SessionStatus, to models.SessionStatus, extra map[string]interface{}, actorID uint) (models.AttendanceSession, error) {
	var session models.AttendanceSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, id).Error; err != nil {
			return err
		}
		before := sessionSnapshot(session)

		updates := map[string]interface{}{"status": to}
		for key, value := range extra {
			updates[key] = value
		}

		result := tx.Model(&models.AttendanceSession{}).
			Where("id = ? AND status IN ?", id, statusStrings(from)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateConflict
		}

		session.Status = to
		if autoOpened, ok := extra["auto_opened"].(bool); ok {
			session.AutoOpened = autoOpened
		}
		if autoClosed, ok := extra["auto_closed"].(bool); ok {
			session.AutoClosed = autoClosed
		}

		return appendAuditTx(tx, models.AttendanceAuditLog{
			EntityType: "attendance_session",
			EntityID:   session.ID,
			Action:     models.AuditActionTransition,
			ActorID:    actorID,
			Before:     before,
			After:      sessionSnapshot(session),
		})
	})
	if err != nil {
		return models.AttendanceSession{}, err
	}
	return session, nil
}

func (r *sessionRepository) SetQRToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.AttendanceSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"qr_token": token, "qr_expires_at": expiresAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDueForOpen has no lower bound on starts_at: a scheduled session
// whose start was missed by an earlier sweep (worker downtime) is still
// picked up as long as it has not ended.
func (r *sessionRepository) ListDueForOpen(ctx context.Context, now time.Time, grace time.Duration) ([]models.AttendanceSession, error) {
	var sessions []models.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND starts_at <= ?", models.SessionStatusScheduled, now.Add(grace)).
		Where("ends_at > ?", now).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) ListDueForClose(ctx context.Context, now time.Time, grace time.Duration) ([]models.AttendanceSession, error) {
	var sessions []models.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", models.SessionStatusOpen, now.Add(-grace)).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindMarkableForStudentAt locates the open or closed session whose time
// window contains the given instant and in which the student is actively
// enrolled. Used to attribute biometric events.
func (r *sessionRepository) FindMarkableForStudentAt(ctx context.Context, studentID uint, at time.Time) (models.AttendanceSession, error) {
	var session models.AttendanceSession
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.course_section_id = attendance_sessions.course_section_id").
		Where("enrollments.student_id = ? AND enrollments.status = ?", studentID, models.EnrollmentStatusActive).
		Where("attendance_sessions.starts_at <= ? AND attendance_sessions.ends_at >= ?", at, at).
		Where("attendance_sessions.status IN ?", []string{string(models.SessionStatusOpen), string(models.SessionStatusClosed)}).
		Order("attendance_sessions.starts_at DESC").
		First(&session).Error
	if err != nil {
		return models.AttendanceSession{}, err
	}
	return session, nil
}

// DeleteOlderThan removes sessions past the retention horizon together with
// their dependent records and corrections. The audit trail is kept.
func (r *sessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&models.AttendanceSession{}).
			Select("id").
			Where("scheduled_date < ?", cutoff.Format("2006-01-02"))

		if err := tx.Where("session_id IN (?)", subquery).Delete(&models.AttendanceRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN (?)", subquery).Delete(&models.AttendanceCorrectionRequest{}).Error; err != nil {
			return err
		}

		result := tx.Where("scheduled_date < ?", cutoff.Format("2006-01-02")).Delete(&models.AttendanceSession{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func statusStrings(statuses []models.SessionStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return values
}
