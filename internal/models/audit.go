package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction names the mutation recorded by an audit entry.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionTransition AuditAction = "transition"
	AuditActionCorrection AuditAction = "correction"
	AuditActionDelete     AuditAction = "delete"
)

// AttendanceAuditLog is an append-only trail of entity mutations with
// before/after snapshots. Rows are never updated or deleted by normal
// operation.
type AttendanceAuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	EntityType string            `gorm:"size:64;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action     AuditAction       `gorm:"size:32;not null" json:"action"`
	ActorID    uint              `gorm:"not null;default:0" json:"actor_id"`
	Source     string            `gorm:"size:32" json:"source"`
	Before     datatypes.JSONMap `gorm:"type:json" json:"before"`
	After      datatypes.JSONMap `gorm:"type:json" json:"after"`
	CreatedAt  time.Time         `json:"created_at"`
}
