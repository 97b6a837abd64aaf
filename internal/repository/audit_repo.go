package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
)

// AuditLogRepository reads the append-only audit trail. Writes happen
// inside the mutating repositories' transactions via appendAuditTx so the
// trail can never drift from the mutation it describes.
type AuditLogRepository interface {
	ListByEntity(ctx context.Context, entityType string, entityID uint) ([]models.AttendanceAuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs an audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]models.AttendanceAuditLog, error) {
	var entries []models.AttendanceAuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func appendAuditTx(tx *gorm.DB, entry models.AttendanceAuditLog) error {
	return tx.Create(&entry).Error
}

func recordSnapshot(record models.AttendanceRecord) datatypes.JSONMap {
	return datatypes.JSONMap{
		"mark":      string(record.Mark),
		"source":    string(record.Source),
		"reason":    record.Reason,
		"marked_by": record.MarkedBy,
	}
}

func sessionSnapshot(session models.AttendanceSession) datatypes.JSONMap {
	return datatypes.JSONMap{
		"status":      string(session.Status),
		"auto_opened": session.AutoOpened,
		"auto_closed": session.AutoClosed,
	}
}
