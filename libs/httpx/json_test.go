package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sampleRequest struct {
	EventType string `json:"eventType" validate:"required,oneof=booking_requested booking_confirmed"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"eventType":"booking_requested","email":"a@b.de"}`))
	var dst sampleRequest
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if dst.EventType != "booking_requested" {
		t.Fatalf("unexpected decode %+v", dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"eventType":"nope","email":"x"}`))
	err := DecodeJSON(req, &dst)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "EventType must be one of") || !strings.Contains(err.Error(), "Email must be a valid email") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	if err := DecodeJSON(req, &dst); err == nil || err.Error() != "invalid json body" {
		t.Fatalf("expected invalid json body, got %v", err)
	}
}

func TestWriteError(t *testing.T) {
	rw := httptest.NewRecorder()
	WriteError(rw, http.StatusConflict, "slot_unavailable", "slot no longer available")
	if rw.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), `"error":"slot_unavailable"`) {
		t.Fatalf("unexpected body %s", rw.Body.String())
	}
}
