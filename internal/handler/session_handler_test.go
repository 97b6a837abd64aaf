package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/service"
)

func newSessionTestApp(role string, queries *sessionQueryStub, materializer *materializerStub, lifecycle *lifecycleStub, records *recordServiceStub) *fiber.App {
	h := NewSessionHandler(queries, materializer, lifecycle, records, testLogger())
	return newHandlerApp(1, role, func(router fiber.Router) {
		h.Register(router.Group("/sessions"))
	})
}

func openSessionFixture() models.AttendanceSession {
	date := time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC)
	expiry := date.Add(10 * time.Hour)
	return models.AttendanceSession{
		ID: 7, CourseSectionID: 1, FacultyID: 10, ScheduledDate: date,
		StartsAt: date.Add(9 * time.Hour), EndsAt: expiry,
		Status: models.SessionStatusOpen, QRToken: "signed-token", QRExpiresAt: &expiry,
	}
}

func TestSessionTransitionEndpoints(t *testing.T) {
	lifecycle := &lifecycleStub{session: openSessionFixture()}
	app := newSessionTestApp("faculty", &sessionQueryStub{}, &materializerStub{}, lifecycle, &recordServiceStub{})

	for _, verb := range []string{"open", "close", "lock", "cancel"} {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/7/"+verb, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, verb)

		body := decodeBody(t, resp)
		require.Equal(t, true, body["success"])
	}

	lifecycle.err = fmt.Errorf("%w: locked -> open", service.ErrIllegalTransition)
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/7/open", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	lifecycle.err = service.ErrSessionNotFound
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/sessions/7/open", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/sessions/abc/open", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionQRTokenVisibilityByRole(t *testing.T) {
	queries := &sessionQueryStub{session: openSessionFixture()}

	facultyApp := newSessionTestApp("faculty", queries, &materializerStub{}, &lifecycleStub{}, &recordServiceStub{})
	resp, err := facultyApp.Test(jsonRequest(t, http.MethodGet, "/sessions/7", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]interface{})
	require.Equal(t, "signed-token", data["qr_token"])

	studentApp := newSessionTestApp("student", queries, &materializerStub{}, &lifecycleStub{}, &recordServiceStub{})
	resp, err = studentApp.Test(jsonRequest(t, http.MethodGet, "/sessions/7", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data = decodeBody(t, resp)["data"].(map[string]interface{})
	_, exposed := data["qr_token"]
	require.False(t, exposed)
}

func TestCreateAdHocSessionEndpoint(t *testing.T) {
	materializer := &materializerStub{}
	app := newSessionTestApp("faculty", &sessionQueryStub{}, materializer, &lifecycleStub{}, &recordServiceStub{})

	payload := map[string]interface{}{
		"course_section_id": 1,
		"faculty_id":        10,
		"starts_at":         "2026-09-21T09:00:00Z",
		"ends_at":           "2026-09-21T10:00:00Z",
		"room":              "A-101",
	}
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A duplicate slot answers conflict.
	materializer.createErr = repository.ErrStateConflict
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/sessions", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	payload["starts_at"] = "not-a-timestamp"
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/sessions", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateSessionsEndpoint(t *testing.T) {
	materializer := &materializerStub{created: 12}
	app := newSessionTestApp("admin", &sessionQueryStub{}, materializer, &lifecycleStub{}, &recordServiceStub{})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/generate", map[string]string{
		"start_date": "2026-09-21",
		"end_date":   "2026-09-27",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]interface{})
	require.Equal(t, float64(12), data["created"])

	materializer.genErr = service.ErrInvalidDateRange
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/sessions/generate", map[string]string{
		"start_date": "2026-09-27",
		"end_date":   "2026-09-21",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
