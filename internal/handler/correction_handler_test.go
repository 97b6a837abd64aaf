package handler

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
)

func newCorrectionTestApp(userID uint, role string, corrections *correctionServiceStub) *fiber.App {
	h := NewCorrectionHandler(corrections, testLogger())
	return newHandlerApp(userID, role, func(router fiber.Router) {
		group := router.Group("/corrections")
		h.Register(group)
		h.RegisterCreate(group)
		h.RegisterDecide(group)
	})
}

func TestCorrectionCreateAsStudent(t *testing.T) {
	corrections := &correctionServiceStub{correction: dto.CorrectionResponse{
		ID: 3, SessionID: 7, StudentID: 55, Status: "pending",
	}}
	app := newCorrectionTestApp(55, "student", corrections)

	payload := map[string]interface{}{
		"session_id": 7, "student_id": 55, "to_mark": "present", "reason": "scanner failed",
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/corrections", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(55), corrections.requestedBy)
	require.Equal(t, "student", corrections.requestRole)

	// Filing for someone else's record is rejected.
	corrections.createErr = service.ErrCorrectionNotAllowed
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/corrections", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCorrectionCreateStatusMapping(t *testing.T) {
	corrections := &correctionServiceStub{}
	app := newCorrectionTestApp(10, "faculty", corrections)

	payload := map[string]interface{}{
		"session_id": 7, "student_id": 55, "to_mark": "present", "reason": "scanner failed",
	}

	cases := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrRecordMissing, http.StatusUnprocessableEntity},
		{service.ErrPendingCorrectionExists, http.StatusConflict},
	}
	for _, tc := range cases {
		corrections.createErr = tc.err
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/corrections", payload))
		require.NoError(t, err)
		require.Equal(t, tc.want, resp.StatusCode, tc.err.Error())
	}
}

func TestCorrectionDecideAsFaculty(t *testing.T) {
	corrections := &correctionServiceStub{correction: dto.CorrectionResponse{
		ID: 3, SessionID: 7, StudentID: 55, Status: "approved",
	}}
	app := newCorrectionTestApp(10, "faculty", corrections)

	payload := map[string]string{"decision": "approved", "note": "verified"}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/corrections/3/decide", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, uint(10), corrections.decidedBy)
	require.Equal(t, "faculty", corrections.decideRole)

	// Deciding a session owned by another faculty member is rejected.
	corrections.decideErr = service.ErrCorrectionNotAllowed
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/corrections/3/decide", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	corrections.decideErr = service.ErrCorrectionNotPending
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/corrections/3/decide", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
