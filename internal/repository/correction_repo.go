package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/attendance-api/internal/models"
)

// CorrectionFilter scopes correction request listings.
type CorrectionFilter struct {
	SessionID uint
	StudentID uint
	Status    models.CorrectionStatus
	Page      int
	PageSize  int
}

// CorrectionRepository defines persistence operations for correction
// requests. Decide runs the terminal transition and the optional record
// mutation in one transaction, guarded by a conditional update on the
// pending status.
type CorrectionRepository interface {
	GetByID(ctx context.Context, id uint) (models.AttendanceCorrectionRequest, error)
	List(ctx context.Context, filter CorrectionFilter) ([]models.AttendanceCorrectionRequest, int64, error)
	Create(ctx context.Context, request *models.AttendanceCorrectionRequest) error
	HasPending(ctx context.Context, sessionID, studentID uint) (bool, error)
	Decide(ctx context.Context, id uint, status models.CorrectionStatus, decidedBy uint, note string, applyMark *models.AttendanceRecord) (models.AttendanceCorrectionRequest, error)
}

type correctionRepository struct {
	db *gorm.DB
}

// NewCorrectionRepository instantiates a GORM-backed correction repository.
func NewCorrectionRepository(db *gorm.DB) CorrectionRepository {
	return &correctionRepository{db: db}
}

func (r *correctionRepository) GetByID(ctx context.Context, id uint) (models.AttendanceCorrectionRequest, error) {
	var request models.AttendanceCorrectionRequest
	if err := r.db.WithContext(ctx).Preload("Session").First(&request, id).Error; err != nil {
		return models.AttendanceCorrectionRequest{}, err
	}
	return request, nil
}

func (r *correctionRepository) List(ctx context.Context, filter CorrectionFilter) ([]models.AttendanceCorrectionRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AttendanceCorrectionRequest{})

	if filter.SessionID != 0 {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var requests []models.AttendanceCorrectionRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *correctionRepository) Create(ctx context.Context, request *models.AttendanceCorrectionRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *correctionRepository) HasPending(ctx context.Context, sessionID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AttendanceCorrectionRequest{}).
		Where("session_id = ? AND student_id = ? AND status = ?", sessionID, studentID, models.CorrectionStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Decide finalizes a pending request. The WHERE status = 'pending' guard
// makes concurrent decisions race-safe: the loser sees zero rows updated
// and gets ErrStateConflict. When applyMark is set (approval), the record
// upsert and both audit entries join the same transaction.
func (r *correctionRepository) Decide(ctx context.Context, id uint, status models.CorrectionStatus, decidedBy uint, note string, applyMark *models.AttendanceRecord) (models.AttendanceCorrectionRequest, error) {
	var request models.AttendanceCorrectionRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, id).Error; err != nil {
			return err
		}
		if request.Status != models.CorrectionStatusPending {
			return ErrStateConflict
		}

		now := time.Now().UTC()
		result := tx.Model(&models.AttendanceCorrectionRequest{}).
			Where("id = ? AND status = ?", id, models.CorrectionStatusPending).
			Updates(map[string]interface{}{
				"status":        status,
				"decided_by":    decidedBy,
				"decided_at":    now,
				"decision_note": note,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateConflict
		}

		request.Status = status
		request.DecidedBy = &decidedBy
		request.DecidedAt = &now
		request.DecisionNote = note

		if err := appendAuditTx(tx, models.AttendanceAuditLog{
			EntityType: "attendance_correction",
			EntityID:   request.ID,
			Action:     models.AuditActionCorrection,
			ActorID:    decidedBy,
			Before:     correctionSnapshot(models.CorrectionStatusPending),
			After:      correctionSnapshot(status),
		}); err != nil {
			return err
		}

		if applyMark == nil {
			return nil
		}
		return upsertRecordTx(tx, applyMark, decidedBy)
	})
	if err != nil {
		return models.AttendanceCorrectionRequest{}, err
	}
	return request, nil
}

func upsertRecordTx(tx *gorm.DB, record *models.AttendanceRecord, actorID uint) error {
	var existing models.AttendanceRecord
	entry := models.AttendanceAuditLog{
		EntityType: "attendance_record",
		Action:     models.AuditActionUpdate,
		ActorID:    actorID,
		Source:     string(record.Source),
	}

	err := tx.Where("session_id = ? AND student_id = ?", record.SessionID, record.StudentID).
		First(&existing).Error
	switch {
	case err == nil:
		entry.Before = recordSnapshot(existing)
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry.Action = models.AuditActionCreate
	default:
		return err
	}

	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mark", "source", "marked_at", "marked_by", "reason", "correlation_id", "updated_at",
		}),
	}).Create(record)
	if result.Error != nil {
		return result.Error
	}
	if record.ID == 0 {
		record.ID = existing.ID
	}

	entry.EntityID = record.ID
	entry.After = recordSnapshot(*record)
	return appendAuditTx(tx, entry)
}

func correctionSnapshot(status models.CorrectionStatus) datatypes.JSONMap {
	return datatypes.JSONMap{"status": string(status)}
}
