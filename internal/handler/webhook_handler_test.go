package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/service"
)

func newWebhookTestApp(records *recordServiceStub) *fiber.App {
	h := NewWebhookHandler(records, testLogger())
	return newHandlerApp(0, "device", func(router fiber.Router) {
		h.Register(router.Group("/webhooks"))
	})
}

func biometricEventPayload() map[string]interface{} {
	return map[string]interface{}{
		"device_id":       "gate-01",
		"subject_id":      "fp-5501",
		"event_type":      "checkin",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"vendor_event_id": "evt-0001",
	}
}

func TestBiometricWebhookAcceptsEvent(t *testing.T) {
	records := &recordServiceStub{record: dto.RecordResponse{ID: 1, Mark: "present", Source: "biometric"}}
	app := newWebhookTestApp(records)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/webhooks/biometric", biometricEventPayload()))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
}

func TestBiometricWebhookRejectionReasons(t *testing.T) {
	records := &recordServiceStub{}
	app := newWebhookTestApp(records)

	cases := []struct {
		err    error
		reason string
	}{
		{service.ErrStaleEvent, "stale"},
		{service.ErrDeviceNotFound, "unknown_device"},
		{service.ErrSubjectUnmapped, "unmapped_subject"},
		{service.ErrNoMatchingSession, "no_session"},
	}
	for _, tc := range cases {
		records.ingestErr = tc.err
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/webhooks/biometric", biometricEventPayload()))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.reason)

		body := decodeBody(t, resp)
		require.Equal(t, false, body["success"])
		require.Equal(t, tc.reason, body["reason"])
	}
}
