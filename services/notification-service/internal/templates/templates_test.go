package templates

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	d := Data{FirstName: "Lena", DateISO: "2026-03-10", Time: "14:30", ServiceName: "Balayage"}
	cases := []struct {
		kind    Kind
		subject string
		want    []string
	}{
		{KindRequested, "Termin-Anfrage erhalten – Parrylicious", []string{"Hallo Lena", "10.03.2026", "14:30", "Balayage", "Anfrage"}},
		{KindConfirmed, "Termin bestätigt – Parrylicious", []string{"Hallo Lena", "10.03.2026", "ist bestätigt"}},
		{KindCanceled, "Termin storniert – Parrylicious", []string{"wurde storniert", "10.03.2026"}},
		{KindDepositPaid, "Anzahlung erhalten – Parrylicious", []string{"Anzahlung", "Balayage"}},
	}
	for _, tc := range cases {
		msg := Render(tc.kind, d)
		if msg.Subject != tc.subject {
			t.Fatalf("%s: subject %q", tc.kind, msg.Subject)
		}
		for _, w := range tc.want {
			if !strings.Contains(msg.Body, w) {
				t.Fatalf("%s: body %q missing %q", tc.kind, msg.Body, w)
			}
		}
	}
}

func TestRenderFallbacks(t *testing.T) {
	msg := Render(KindConfirmed, Data{DateISO: "not-a-date", Time: "10:00"})
	if !strings.Contains(msg.Body, "Hallo Kundin/Kunde") || !strings.Contains(msg.Body, "für Termin") {
		t.Fatalf("fallbacks not applied: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "not-a-date") {
		t.Fatalf("unparseable dates pass through: %q", msg.Body)
	}
}

func TestKindValid(t *testing.T) {
	if !KindCanceled.Valid() || Kind("booking_deleted").Valid() {
		t.Fatal("unexpected Valid result")
	}
}
