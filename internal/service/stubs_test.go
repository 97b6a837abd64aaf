package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// --- session repository ---

type transitionCall struct {
	sessionID uint
	to        models.SessionStatus
	extra     map[string]interface{}
	actorID   uint
}

type stubSessionRepo struct {
	sessions    map[uint]models.AttendanceSession
	createdKeys map[string]bool
	nextID      uint

	transitions []transitionCall
	conflictIDs map[uint]bool

	dueOpen  []models.AttendanceSession
	dueClose []models.AttendanceSession
	markable map[uint]models.AttendanceSession

	listFilter repository.SessionFilter

	removed int64
	cutoff  time.Time
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		sessions:    map[uint]models.AttendanceSession{},
		createdKeys: map[string]bool{},
		conflictIDs: map[uint]bool{},
		markable:    map[uint]models.AttendanceSession{},
		nextID:      1000,
	}
}

func (r *stubSessionRepo) add(session models.AttendanceSession) models.AttendanceSession {
	if session.ID == 0 {
		r.nextID++
		session.ID = r.nextID
	}
	r.sessions[session.ID] = session
	return session
}

func (r *stubSessionRepo) GetByID(_ context.Context, id uint) (models.AttendanceSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return models.AttendanceSession{}, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (r *stubSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]models.AttendanceSession, int64, error) {
	r.listFilter = filter
	sessions := make([]models.AttendanceSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions, int64(len(sessions)), nil
}

func (r *stubSessionRepo) CreateWithRecords(_ context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) (bool, error) {
	key := fmt.Sprintf("adhoc|%d|%s|%s", session.CourseSectionID, session.ScheduledDate.Format("2006-01-02"), session.StartsAt.Format("15:04"))
	if session.TimetableSlotID != nil {
		key = fmt.Sprintf("slot|%d|%s", *session.TimetableSlotID, session.ScheduledDate.Format("2006-01-02"))
	}
	if r.createdKeys[key] {
		return false, nil
	}
	r.createdKeys[key] = true
	r.nextID++
	session.ID = r.nextID
	r.sessions[session.ID] = *session
	return true, nil
}

func (r *stubSessionRepo) Transition(_ context.Context, id uint, from []models.SessionStatus, to models.SessionStatus, extra map[string]interface{}, actorID uint) (models.AttendanceSession, error) {
	if r.conflictIDs[id] {
		return models.AttendanceSession{}, repository.ErrStateConflict
	}
	session, ok := r.sessions[id]
	if !ok {
		return models.AttendanceSession{}, gorm.ErrRecordNotFound
	}

	allowed := false
	for _, status := range from {
		if session.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.AttendanceSession{}, repository.ErrStateConflict
	}

	session.Status = to
	if autoOpened, ok := extra["auto_opened"].(bool); ok {
		session.AutoOpened = autoOpened
	}
	if autoClosed, ok := extra["auto_closed"].(bool); ok {
		session.AutoClosed = autoClosed
	}
	r.sessions[id] = session
	r.transitions = append(r.transitions, transitionCall{sessionID: id, to: to, extra: extra, actorID: actorID})
	return session, nil
}

func (r *stubSessionRepo) SetQRToken(_ context.Context, id uint, token string, expiresAt time.Time) error {
	session, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.QRToken = token
	session.QRExpiresAt = &expiresAt
	r.sessions[id] = session
	return nil
}

func (r *stubSessionRepo) ListDueForOpen(_ context.Context, _ time.Time, _ time.Duration) ([]models.AttendanceSession, error) {
	return r.dueOpen, nil
}

func (r *stubSessionRepo) ListDueForClose(_ context.Context, _ time.Time, _ time.Duration) ([]models.AttendanceSession, error) {
	return r.dueClose, nil
}

func (r *stubSessionRepo) FindMarkableForStudentAt(_ context.Context, studentID uint, _ time.Time) (models.AttendanceSession, error) {
	session, ok := r.markable[studentID]
	if !ok {
		return models.AttendanceSession{}, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (r *stubSessionRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.removed, nil
}

// --- record repository ---

type recordKey struct {
	sessionID uint
	studentID uint
}

type stubRecordRepo struct {
	records    map[recordKey]models.AttendanceRecord
	upserts    []models.AttendanceRecord
	backfilled []models.AttendanceRecord
	aggregates []repository.MarkAggregate
	nextID     uint
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{records: map[recordKey]models.AttendanceRecord{}, nextID: 5000}
}

func (r *stubRecordRepo) GetBySessionStudent(_ context.Context, sessionID, studentID uint) (models.AttendanceRecord, error) {
	record, ok := r.records[recordKey{sessionID, studentID}]
	if !ok {
		return models.AttendanceRecord{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *stubRecordRepo) ListBySession(_ context.Context, sessionID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	for key, record := range r.records {
		if key.sessionID == sessionID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *stubRecordRepo) ListStudentIDsWithRecords(_ context.Context, sessionID uint) ([]uint, error) {
	var ids []uint
	for key := range r.records {
		if key.sessionID == sessionID {
			ids = append(ids, key.studentID)
		}
	}
	return ids, nil
}

func (r *stubRecordRepo) Upsert(_ context.Context, record *models.AttendanceRecord, _ uint) error {
	key := recordKey{record.SessionID, record.StudentID}
	if existing, ok := r.records[key]; ok {
		record.ID = existing.ID
	} else {
		r.nextID++
		record.ID = r.nextID
	}
	r.records[key] = *record
	r.upserts = append(r.upserts, *record)
	return nil
}

func (r *stubRecordRepo) InsertMissing(_ context.Context, records []models.AttendanceRecord) (int64, error) {
	var inserted int64
	for _, record := range records {
		key := recordKey{record.SessionID, record.StudentID}
		if _, ok := r.records[key]; ok {
			continue
		}
		r.nextID++
		record.ID = r.nextID
		r.records[key] = record
		r.backfilled = append(r.backfilled, record)
		inserted++
	}
	return inserted, nil
}

func (r *stubRecordRepo) Aggregate(_ context.Context, _, _ uint, _ string) ([]repository.MarkAggregate, error) {
	return r.aggregates, nil
}

// --- enrollment repository ---

type stubEnrollmentRepo struct {
	bySection map[uint][]models.Enrollment
}

func newStubEnrollmentRepo() *stubEnrollmentRepo {
	return &stubEnrollmentRepo{bySection: map[uint][]models.Enrollment{}}
}

func (r *stubEnrollmentRepo) enroll(studentID, sectionID uint) {
	r.bySection[sectionID] = append(r.bySection[sectionID], models.Enrollment{
		StudentID:       studentID,
		CourseSectionID: sectionID,
		Status:          models.EnrollmentStatusActive,
	})
}

func (r *stubEnrollmentRepo) ListActiveBySection(_ context.Context, sectionID uint) ([]models.Enrollment, error) {
	return r.bySection[sectionID], nil
}

func (r *stubEnrollmentRepo) IsActivelyEnrolled(_ context.Context, studentID, sectionID uint) (bool, error) {
	for _, enrollment := range r.bySection[sectionID] {
		if enrollment.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// --- device repository ---

type stubDeviceRepo struct {
	devices  map[string]models.BiometricDevice
	subjects map[string]uint
}

func newStubDeviceRepo() *stubDeviceRepo {
	return &stubDeviceRepo{devices: map[string]models.BiometricDevice{}, subjects: map[string]uint{}}
}

func (r *stubDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (models.BiometricDevice, error) {
	device, ok := r.devices[deviceID]
	if !ok {
		return models.BiometricDevice{}, gorm.ErrRecordNotFound
	}
	return device, nil
}

func (r *stubDeviceRepo) Register(_ context.Context, device *models.BiometricDevice) error {
	r.devices[device.DeviceID] = *device
	return nil
}

func (r *stubDeviceRepo) ResolveSubject(_ context.Context, deviceID, subjectID string) (uint, error) {
	studentID, ok := r.subjects[deviceID+"/"+subjectID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return studentID, nil
}

func (r *stubDeviceRepo) MapSubject(_ context.Context, mapping *models.DeviceSubjectMapping) error {
	r.subjects[fmt.Sprintf("%d/%s", mapping.DeviceID, mapping.SubjectID)] = mapping.StudentID
	return nil
}

// --- correction repository ---

type stubCorrectionRepo struct {
	corrections map[uint]models.AttendanceCorrectionRequest
	pending     map[recordKey]bool
	appliedMark *models.AttendanceRecord
	nextID      uint
}

func newStubCorrectionRepo() *stubCorrectionRepo {
	return &stubCorrectionRepo{
		corrections: map[uint]models.AttendanceCorrectionRequest{},
		pending:     map[recordKey]bool{},
		nextID:      7000,
	}
}

func (r *stubCorrectionRepo) GetByID(_ context.Context, id uint) (models.AttendanceCorrectionRequest, error) {
	request, ok := r.corrections[id]
	if !ok {
		return models.AttendanceCorrectionRequest{}, gorm.ErrRecordNotFound
	}
	return request, nil
}

func (r *stubCorrectionRepo) List(_ context.Context, _ repository.CorrectionFilter) ([]models.AttendanceCorrectionRequest, int64, error) {
	requests := make([]models.AttendanceCorrectionRequest, 0, len(r.corrections))
	for _, request := range r.corrections {
		requests = append(requests, request)
	}
	return requests, int64(len(requests)), nil
}

func (r *stubCorrectionRepo) Create(_ context.Context, request *models.AttendanceCorrectionRequest) error {
	r.nextID++
	request.ID = r.nextID
	r.corrections[request.ID] = *request
	r.pending[recordKey{request.SessionID, request.StudentID}] = true
	return nil
}

func (r *stubCorrectionRepo) HasPending(_ context.Context, sessionID, studentID uint) (bool, error) {
	return r.pending[recordKey{sessionID, studentID}], nil
}

func (r *stubCorrectionRepo) Decide(_ context.Context, id uint, status models.CorrectionStatus, decidedBy uint, note string, applyMark *models.AttendanceRecord) (models.AttendanceCorrectionRequest, error) {
	request, ok := r.corrections[id]
	if !ok {
		return models.AttendanceCorrectionRequest{}, gorm.ErrRecordNotFound
	}
	if request.Status != models.CorrectionStatusPending {
		return models.AttendanceCorrectionRequest{}, repository.ErrStateConflict
	}

	now := time.Now().UTC()
	request.Status = status
	request.DecidedBy = &decidedBy
	request.DecidedAt = &now
	request.DecisionNote = note
	r.corrections[id] = request
	r.pending[recordKey{request.SessionID, request.StudentID}] = false
	r.appliedMark = applyMark
	return request, nil
}

// --- statistics repository ---

type stubStatisticsRepo struct {
	replaced []models.AttendanceStatistics
	rows     []models.AttendanceStatistics
}

func (r *stubStatisticsRepo) ReplaceAll(_ context.Context, rows []models.AttendanceStatistics) (int64, error) {
	r.replaced = rows
	return int64(len(rows)), nil
}

func (r *stubStatisticsRepo) ListByStudent(_ context.Context, studentID uint, _ string) ([]models.AttendanceStatistics, error) {
	var matched []models.AttendanceStatistics
	for _, row := range r.rows {
		if row.StudentID == studentID {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

func (r *stubStatisticsRepo) Get(_ context.Context, studentID, sectionID uint, period string) (models.AttendanceStatistics, error) {
	for _, row := range r.rows {
		if row.StudentID == studentID && row.CourseSectionID == sectionID && row.Period == period {
			return row, nil
		}
	}
	return models.AttendanceStatistics{}, gorm.ErrRecordNotFound
}

type stubStudentRepo struct {
	students map[uint]models.Student
}

func newStubStudentRepo(ids ...uint) *stubStudentRepo {
	r := &stubStudentRepo{students: map[uint]models.Student{}}
	for _, id := range ids {
		r.students[id] = models.Student{ID: id, IsActive: true}
	}
	return r
}

func (r *stubStudentRepo) GetByID(_ context.Context, id uint) (models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (r *stubStudentRepo) Exists(_ context.Context, id uint) (bool, error) {
	student, ok := r.students[id]
	return ok && student.IsActive, nil
}

// --- timetable repositories ---

type stubSlotRepo struct {
	slots  map[uint]models.TimetableSlot
	nextID uint
}

func newStubSlotRepo() *stubSlotRepo {
	return &stubSlotRepo{slots: map[uint]models.TimetableSlot{}, nextID: 100}
}

func (r *stubSlotRepo) add(slot models.TimetableSlot) models.TimetableSlot {
	if slot.ID == 0 {
		r.nextID++
		slot.ID = r.nextID
	}
	r.slots[slot.ID] = slot
	return slot
}

func (r *stubSlotRepo) GetByID(_ context.Context, id uint) (models.TimetableSlot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return models.TimetableSlot{}, gorm.ErrRecordNotFound
	}
	return slot, nil
}

func (r *stubSlotRepo) ListActiveByDay(_ context.Context, dayOfWeek int, sectionIDs []uint) ([]models.TimetableSlot, error) {
	var matched []models.TimetableSlot
	for _, slot := range r.slots {
		if !slot.IsActive || slot.DayOfWeek != dayOfWeek {
			continue
		}
		if len(sectionIDs) > 0 {
			found := false
			for _, id := range sectionIDs {
				if slot.CourseSectionID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, slot)
	}
	return matched, nil
}

func (r *stubSlotRepo) ListActiveByFaculty(_ context.Context, facultyID uint) ([]models.TimetableSlot, error) {
	var matched []models.TimetableSlot
	for _, slot := range r.slots {
		if slot.IsActive && slot.FacultyID == facultyID {
			matched = append(matched, slot)
		}
	}
	return matched, nil
}

func (r *stubSlotRepo) List(_ context.Context) ([]models.TimetableSlot, error) {
	slots := make([]models.TimetableSlot, 0, len(r.slots))
	for _, slot := range r.slots {
		slots = append(slots, slot)
	}
	return slots, nil
}

func (r *stubSlotRepo) Create(_ context.Context, slot *models.TimetableSlot) error {
	r.nextID++
	slot.ID = r.nextID
	r.slots[slot.ID] = *slot
	return nil
}

func (r *stubSlotRepo) Update(_ context.Context, slot *models.TimetableSlot) error {
	if _, ok := r.slots[slot.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.slots[slot.ID] = *slot
	return nil
}

func (r *stubSlotRepo) Deactivate(_ context.Context, id uint) error {
	slot, ok := r.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	slot.IsActive = false
	r.slots[id] = slot
	return nil
}

type stubHolidayRepo struct {
	dates map[string]bool
}

func newStubHolidayRepo() *stubHolidayRepo {
	return &stubHolidayRepo{dates: map[string]bool{}}
}

func (r *stubHolidayRepo) IsHoliday(_ context.Context, date time.Time, _ string) (bool, error) {
	return r.dates[date.Format("2006-01-02")], nil
}

func (r *stubHolidayRepo) List(_ context.Context, _ string) ([]models.Holiday, error) {
	return nil, nil
}

func (r *stubHolidayRepo) Create(_ context.Context, holiday *models.Holiday) error {
	r.dates[holiday.Date.Format("2006-01-02")] = true
	return nil
}

// --- settings ---

type stubSettings struct {
	grace          time.Duration
	threshold      float64
	autoOpen       bool
	autoClose      bool
	qrSelfMark     bool
	autoMarkAbsent bool
	retentionYears int
	freshness      time.Duration
	qrTTL          time.Duration
}

func defaultStubSettings() *stubSettings {
	return &stubSettings{
		grace:          5 * time.Minute,
		threshold:      75,
		autoOpen:       true,
		autoClose:      true,
		qrSelfMark:     true,
		autoMarkAbsent: true,
		retentionYears: 7,
		freshness:      time.Hour,
	}
}

func (s *stubSettings) GracePeriod(context.Context) time.Duration        { return s.grace }
func (s *stubSettings) EligibilityThreshold(context.Context) float64     { return s.threshold }
func (s *stubSettings) AutoOpenEnabled(context.Context) bool             { return s.autoOpen }
func (s *stubSettings) AutoCloseEnabled(context.Context) bool            { return s.autoClose }
func (s *stubSettings) QRSelfMarkEnabled(context.Context) bool           { return s.qrSelfMark }
func (s *stubSettings) AutoMarkAbsentEnabled(context.Context) bool       { return s.autoMarkAbsent }
func (s *stubSettings) RetentionYears(context.Context) int               { return s.retentionYears }
func (s *stubSettings) BiometricFreshness(context.Context) time.Duration { return s.freshness }
func (s *stubSettings) QRTokenTTL(context.Context) time.Duration         { return s.qrTTL }
func (s *stubSettings) List(context.Context) ([]models.Setting, error)   { return nil, nil }
func (s *stubSettings) Set(context.Context, string, string, uint) error  { return nil }

// --- events ---

type sessionEvent struct {
	session models.AttendanceSession
	from    models.SessionStatus
}

type stubEvents struct {
	marked       []models.AttendanceRecord
	transitioned []sessionEvent
}

func (e *stubEvents) RecordMarked(record models.AttendanceRecord) {
	e.marked = append(e.marked, record)
}

func (e *stubEvents) SessionTransitioned(session models.AttendanceSession, from models.SessionStatus) {
	e.transitioned = append(e.transitioned, sessionEvent{session: session, from: from})
}

// --- lifecycle ---

type stubLifecycle struct {
	qrSession models.AttendanceSession
	qrErr     error
}

func (l *stubLifecycle) Open(_ context.Context, _, _ uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (l *stubLifecycle) Close(_ context.Context, _, _ uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (l *stubLifecycle) Lock(_ context.Context, _, _ uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (l *stubLifecycle) Cancel(_ context.Context, _, _ uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (l *stubLifecycle) AutoOpenSweep(context.Context) (int, error)  { return 0, nil }
func (l *stubLifecycle) AutoCloseSweep(context.Context) (int, error) { return 0, nil }

func (l *stubLifecycle) ValidateQR(context.Context, string) (models.AttendanceSession, error) {
	return l.qrSession, l.qrErr
}

func (l *stubLifecycle) CleanupOldData(context.Context) (int64, error) { return 0, nil }
