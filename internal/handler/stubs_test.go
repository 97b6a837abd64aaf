package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// newHandlerApp mounts routes behind a shim that injects the auth locals
// normally set by the JWT middleware.
func newHandlerApp(userID uint, role string, register func(router fiber.Router)) *fiber.App {
	app := fiber.New()
	group := app.Group("/", func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	})
	register(group)
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

// --- service stubs ---

type sessionQueryStub struct {
	session models.AttendanceSession
	getErr  error
}

func (s *sessionQueryStub) Get(context.Context, uint) (models.AttendanceSession, error) {
	return s.session, s.getErr
}

func (s *sessionQueryStub) List(context.Context, dto.SessionListQuery) ([]models.AttendanceSession, int64, error) {
	return []models.AttendanceSession{s.session}, 1, nil
}

type materializerStub struct {
	created   int
	genErr    error
	createErr error
}

func (s *materializerStub) GenerateSessions(context.Context, time.Time, time.Time, []uint) (int, error) {
	return s.created, s.genErr
}

func (s *materializerStub) CreateAdHocSession(_ context.Context, session *models.AttendanceSession) error {
	if s.createErr != nil {
		return s.createErr
	}
	session.ID = 77
	session.Status = models.SessionStatusScheduled
	return nil
}

type lifecycleStub struct {
	session models.AttendanceSession
	err     error
}

func (s *lifecycleStub) Open(context.Context, uint, uint) (models.AttendanceSession, error) {
	return s.session, s.err
}

func (s *lifecycleStub) Close(context.Context, uint, uint) (models.AttendanceSession, error) {
	return s.session, s.err
}

func (s *lifecycleStub) Lock(context.Context, uint, uint) (models.AttendanceSession, error) {
	return s.session, s.err
}

func (s *lifecycleStub) Cancel(context.Context, uint, uint) (models.AttendanceSession, error) {
	return s.session, s.err
}

func (s *lifecycleStub) AutoOpenSweep(context.Context) (int, error)  { return 0, nil }
func (s *lifecycleStub) AutoCloseSweep(context.Context) (int, error) { return 0, nil }

func (s *lifecycleStub) ValidateQR(context.Context, string) (models.AttendanceSession, error) {
	return s.session, s.err
}

func (s *lifecycleStub) CleanupOldData(context.Context) (int64, error) { return 0, nil }

type recordServiceStub struct {
	record     dto.RecordResponse
	markErr    error
	bulk       dto.BulkMarkResponse
	bulkErr    error
	checkInErr error
	sync       dto.OfflineSyncResponse
	syncErr    error
	ingestErr  error
	list       []dto.RecordResponse
	listErr    error
}

func (s *recordServiceStub) Mark(context.Context, dto.MarkRequest, models.MarkSource, uint) (dto.RecordResponse, error) {
	return s.record, s.markErr
}

func (s *recordServiceStub) BulkMark(context.Context, uint, dto.BulkMarkRequest, uint) (dto.BulkMarkResponse, error) {
	return s.bulk, s.bulkErr
}

func (s *recordServiceStub) CheckInQR(context.Context, dto.QRCheckInRequest, uint) (dto.RecordResponse, error) {
	return s.record, s.checkInErr
}

func (s *recordServiceStub) SyncOffline(context.Context, dto.OfflineSyncRequest, uint) (dto.OfflineSyncResponse, error) {
	return s.sync, s.syncErr
}

func (s *recordServiceStub) IngestBiometricEvent(context.Context, dto.BiometricEventRequest) (dto.RecordResponse, error) {
	return s.record, s.ingestErr
}

func (s *recordServiceStub) ListBySession(context.Context, uint) ([]dto.RecordResponse, error) {
	return s.list, s.listErr
}

type correctionServiceStub struct {
	correction dto.CorrectionResponse
	createErr  error
	decideErr  error

	requestRole string
	decideRole  string
	requestedBy uint
	decidedBy   uint
}

func (s *correctionServiceStub) Request(_ context.Context, _ dto.CorrectionCreateRequest, requestedBy uint, role string) (dto.CorrectionResponse, error) {
	s.requestedBy = requestedBy
	s.requestRole = role
	return s.correction, s.createErr
}

func (s *correctionServiceStub) Decide(_ context.Context, _ uint, _ dto.CorrectionDecideRequest, decidedBy uint, role string) (dto.CorrectionResponse, error) {
	s.decidedBy = decidedBy
	s.decideRole = role
	return s.correction, s.decideErr
}

func (s *correctionServiceStub) Get(context.Context, uint) (dto.CorrectionResponse, error) {
	return s.correction, nil
}

func (s *correctionServiceStub) List(context.Context, dto.CorrectionListQuery) ([]dto.CorrectionResponse, int64, error) {
	return []dto.CorrectionResponse{s.correction}, 1, nil
}
