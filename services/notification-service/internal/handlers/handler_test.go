package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/notification-service/internal/dispatch"
	"github.com/parrylicious/salonbook/services/notification-service/internal/storage"
	"github.com/parrylicious/salonbook/services/notification-service/internal/templates"
)

const testSecret = "test-secret"

type roleMap map[string]string

func (m roleMap) Role(_ context.Context, userID string) (string, error) {
	if r, ok := m[userID]; ok {
		return r, nil
	}
	return auth.RoleCustomer, nil
}

type memBookings map[string]storage.Booking

func (m memBookings) GetBooking(_ context.Context, id string) (storage.Booking, error) {
	b, ok := m[id]
	if !ok {
		return storage.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

type recordingDispatcher struct {
	reqs []dispatch.Request
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req dispatch.Request) dispatch.Result {
	d.reqs = append(d.reqs, req)
	return dispatch.Result{
		OK:    true,
		Email: dispatch.ChannelResult{Sent: true, Provider: "smtp"},
		SMS:   dispatch.ChannelResult{Skipped: true, Reason: "no phone number"},
	}
}

func newTestServer(t *testing.T) (http.Handler, *recordingDispatcher) {
	t.Helper()
	bookings := memBookings{
		"bk-1": {
			ID:          "bk-1",
			UserID:      "user-1",
			Status:      "requested",
			ServiceName: "Balayage",
			DateISO:     "2026-03-10",
			Time:        "14:30",
			Customer:    storage.Customer{FirstName: "Lena", Email: "lena@example.com"},
		},
	}
	d := &recordingDispatcher{}
	authn := auth.NewAuthenticator(auth.NewVerifier(auth.VerifierConfig{JWTSecret: testSecret}), roleMap{"staff-1": auth.RoleStaff}, nil)
	return New(bookings, d, nil).Routes(authn.Require), d
}

func post(t *testing.T, h http.Handler, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/booking", strings.NewReader(body))
	if userID != "" {
		tok, err := auth.SignHS256(testSecret, userID, userID+"@example.com", time.Hour)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNotifyBookingRules(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{"unauthenticated", "", `{"eventType":"booking_requested","booking":{"id":"bk-1"}}`, http.StatusUnauthorized},
		{"missing booking id", "user-1", `{"eventType":"booking_requested","booking":{}}`, http.StatusBadRequest},
		{"unknown event type", "user-1", `{"eventType":"booking_deleted","booking":{"id":"bk-1"}}`, http.StatusBadRequest},
		{"unknown booking", "user-1", `{"eventType":"booking_requested","booking":{"id":"bk-404"}}`, http.StatusNotFound},
		{"foreign booking", "user-2", `{"eventType":"booking_requested","booking":{"id":"bk-1"}}`, http.StatusForbidden},
		{"customer confirming", "user-1", `{"eventType":"booking_confirmed","booking":{"id":"bk-1"}}`, http.StatusForbidden},
		{"owner requesting", "user-1", `{"eventType":"booking_requested","booking":{"id":"bk-1"}}`, http.StatusOK},
		{"owner canceling", "user-1", `{"eventType":"booking_canceled","booking":{"id":"bk-1"}}`, http.StatusOK},
		{"staff confirming", "staff-1", `{"eventType":"booking_confirmed","booking":{"id":"bk-1"}}`, http.StatusOK},
	}
	for _, tc := range cases {
		h, _ := newTestServer(t)
		rec := post(t, h, tc.user, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
	}
}

func TestNotifyBookingResponse(t *testing.T) {
	h, d := newTestServer(t)
	rec := post(t, h, "staff-1", `{"eventType":"booking_confirmed","booking":{"id":"bk-1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		OK    bool                   `json:"ok"`
		Email dispatch.ChannelResult `json:"email"`
		SMS   dispatch.ChannelResult `json:"sms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || !body.Email.Sent || !body.SMS.Skipped || body.SMS.Reason == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(d.reqs) != 1 || d.reqs[0].Kind != templates.KindConfirmed || d.reqs[0].Email != "lena@example.com" {
		t.Fatalf("dispatch must use the stored booking: %+v", d.reqs)
	}
}
