package contract_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/handler"
	"github.com/campushq/attendance-api/internal/models"
)

type stubSessionQueries struct {
	session models.AttendanceSession
}

func (s stubSessionQueries) Get(context.Context, uint) (models.AttendanceSession, error) {
	return s.session, nil
}

func (s stubSessionQueries) List(context.Context, dto.SessionListQuery) ([]models.AttendanceSession, int64, error) {
	return []models.AttendanceSession{s.session}, 1, nil
}

type stubMaterializer struct{}

func (stubMaterializer) GenerateSessions(context.Context, time.Time, time.Time, []uint) (int, error) {
	return 0, nil
}

func (stubMaterializer) CreateAdHocSession(context.Context, *models.AttendanceSession) error {
	return nil
}

type stubLifecycle struct{}

func (stubLifecycle) Open(context.Context, uint, uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (stubLifecycle) Close(context.Context, uint, uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (stubLifecycle) Lock(context.Context, uint, uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (stubLifecycle) Cancel(context.Context, uint, uint) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (stubLifecycle) AutoOpenSweep(context.Context) (int, error)  { return 0, nil }
func (stubLifecycle) AutoCloseSweep(context.Context) (int, error) { return 0, nil }

func (stubLifecycle) ValidateQR(context.Context, string) (models.AttendanceSession, error) {
	return models.AttendanceSession{}, nil
}

func (stubLifecycle) CleanupOldData(context.Context) (int64, error) { return 0, nil }

type stubRecords struct {
	record dto.RecordResponse
}

func (s stubRecords) Mark(context.Context, dto.MarkRequest, models.MarkSource, uint) (dto.RecordResponse, error) {
	return s.record, nil
}

func (s stubRecords) BulkMark(context.Context, uint, dto.BulkMarkRequest, uint) (dto.BulkMarkResponse, error) {
	return dto.BulkMarkResponse{}, nil
}

func (s stubRecords) CheckInQR(context.Context, dto.QRCheckInRequest, uint) (dto.RecordResponse, error) {
	return s.record, nil
}

func (s stubRecords) SyncOffline(context.Context, dto.OfflineSyncRequest, uint) (dto.OfflineSyncResponse, error) {
	return dto.OfflineSyncResponse{}, nil
}

func (s stubRecords) IngestBiometricEvent(context.Context, dto.BiometricEventRequest) (dto.RecordResponse, error) {
	return s.record, nil
}

func (s stubRecords) ListBySession(context.Context, uint) ([]dto.RecordResponse, error) {
	return []dto.RecordResponse{s.record}, nil
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func jsonBody(t *testing.T, payload interface{}) io.Reader {
	t.Helper()
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(encoded)
}

func validateResponse(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestSessionResponseContract(t *testing.T) {
	schema := compileSchema(t, "session.schema.json")

	date := time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC)
	expiry := date.Add(10 * time.Hour)
	slotID := uint(3)
	queries := stubSessionQueries{session: models.AttendanceSession{
		ID:              7,
		TimetableSlotID: &slotID,
		CourseSectionID: 1,
		FacultyID:       10,
		ScheduledDate:   date,
		StartsAt:        date.Add(9 * time.Hour),
		EndsAt:          expiry,
		Room:            "A-101",
		Status:          models.SessionStatusOpen,
		QRToken:         "signed-token",
		QRExpiresAt:     &expiry,
	}}

	h := handler.NewSessionHandler(queries, stubMaterializer{}, stubLifecycle{}, stubRecords{}, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/sessions", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(10))
		c.Locals("user_role", "faculty")
		return c.Next()
	})
	h.Register(group)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/7", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateResponse(t, schema, resp)
}

func TestCheckInResponseContract(t *testing.T) {
	schema := compileSchema(t, "attendance_record.schema.json")

	records := stubRecords{record: dto.RecordResponse{
		ID:        42,
		SessionID: 7,
		StudentID: 55,
		Mark:      "present",
		Source:    "qr",
		MarkedAt:  time.Now().UTC(),
		MarkedBy:  55,
	}}

	h := handler.NewAttendanceHandler(records, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/attendance", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(55))
		c.Locals("user_role", "student")
		return c.Next()
	})
	h.RegisterCheckIn(group)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/checkin", jsonBody(t, map[string]string{"token": "scanned"}))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateResponse(t, schema, resp)
}
