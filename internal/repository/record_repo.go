package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/attendance-api/internal/models"
)

// MarkAggregate is one grouped row of mark counts used by the statistics
// aggregator.
type MarkAggregate struct {
	StudentID       uint
	CourseSectionID uint
	Period          string
	Total           int
	Present         int
	Absent          int
	Late            int
	Excused         int
}

// RecordRepository defines persistence operations for attendance records.
// All mark mutations flow through Upsert so the (session, student)
// uniqueness constraint serializes concurrent writers and every change is
// audited in the same transaction.
type RecordRepository interface {
	GetBySessionStudent(ctx context.Context, sessionID, studentID uint) (models.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID uint) ([]models.AttendanceRecord, error)
	ListStudentIDsWithRecords(ctx context.Context, sessionID uint) ([]uint, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord, actorID uint) error
	InsertMissing(ctx context.Context, records []models.AttendanceRecord) (int64, error)
	Aggregate(ctx context.Context, studentID, sectionID uint, period string) ([]MarkAggregate, error)
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository instantiates a GORM-backed record repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) GetBySessionStudent(ctx context.Context, sessionID, studentID uint) (models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&record).Error
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	return record, nil
}

func (r *recordRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("student_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *recordRepository) ListStudentIDsWithRecords(ctx context.Context, sessionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("session_id = ?", sessionID).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Upsert creates or updates the single record for (session, student).
// A concurrent insert race resolves through the unique constraint: the
// second writer's INSERT turns into the conflict UPDATE. The before/after
// audit entry is written in the same transaction.
func (r *recordRepository) Upsert(ctx context.Context, record *models.AttendanceRecord, actorID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertRecordTx(tx, record, actorID)
	})
}

// InsertMissing creates default rows for students who still lack a record,
// skipping those already present. Used by auto-close to cover enrollment
// changes after session creation.
func (r *recordRepository) InsertMissing(ctx context.Context, records []models.AttendanceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records)
	return result.RowsAffected, result.Error
}

func (r *recordRepository) Aggregate(ctx context.Context, studentID, sectionID uint, period string) ([]MarkAggregate, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select(`attendance_records.student_id,
			attendance_sessions.course_section_id,
			course_sections.academic_year AS period,
			COUNT(*) AS total,
			SUM(CASE WHEN attendance_records.mark = 'present' THEN 1 ELSE 0 END) AS present,
			SUM(CASE WHEN attendance_records.mark = 'absent' THEN 1 ELSE 0 END) AS absent,
			SUM(CASE WHEN attendance_records.mark = 'late' THEN 1 ELSE 0 END) AS late,
			SUM(CASE WHEN attendance_records.mark = 'excused' THEN 1 ELSE 0 END) AS excused`).
		Joins("JOIN attendance_sessions ON attendance_sessions.id = attendance_records.session_id").
		Joins("JOIN course_sections ON course_sections.id = attendance_sessions.course_section_id").
		Where("attendance_sessions.status <> ?", models.SessionStatusCancelled).
		Group("attendance_records.student_id, attendance_sessions.course_section_id, course_sections.academic_year")

	if studentID != 0 {
		query = query.Where("attendance_records.student_id = ?", studentID)
	}
	if sectionID != 0 {
		query = query.Where("attendance_sessions.course_section_id = ?", sectionID)
	}
	if period != "" {
		query = query.Where("course_sections.academic_year = ?", period)
	}

	var rows []MarkAggregate
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
