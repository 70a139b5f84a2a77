// Package templates renders the customer-facing German booking messages.
package templates

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindRequested   Kind = "booking_requested"
	KindConfirmed   Kind = "booking_confirmed"
	KindCanceled    Kind = "booking_canceled"
	KindDepositPaid Kind = "deposit_paid"
)

const brand = "Parrylicious"

// Data is what a message can mention about a booking.
type Data struct {
	FirstName   string
	DateISO     string
	Time        string
	ServiceName string
}

type Message struct {
	Subject string
	Body    string
}

func (k Kind) Valid() bool {
	switch k {
	case KindRequested, KindConfirmed, KindCanceled, KindDepositPaid:
		return true
	}
	return false
}

// Render builds subject and body for kind. Unknown kinds render as a request
// acknowledgement.
func Render(kind Kind, d Data) Message {
	name := strings.TrimSpace(d.FirstName)
	if name == "" {
		name = "Kundin/Kunde"
	}
	service := strings.TrimSpace(d.ServiceName)
	if service == "" {
		service = "Termin"
	}
	date := FormatDate(d.DateISO)
	at := strings.TrimSpace(d.Time)

	switch kind {
	case KindConfirmed:
		return Message{
			Subject: subject("Termin bestätigt"),
			Body:    fmt.Sprintf("Hallo %s, dein Termin am %s um %s für %s ist bestätigt.", name, date, at, service),
		}
	case KindCanceled:
		return Message{
			Subject: subject("Termin storniert"),
			Body:    fmt.Sprintf("Hallo %s, dein Termin am %s um %s wurde storniert. Bitte melde dich für einen neuen Termin.", name, date, at),
		}
	case KindDepositPaid:
		return Message{
			Subject: subject("Anzahlung erhalten"),
			Body:    fmt.Sprintf("Hallo %s, wir haben deine Anzahlung für %s am %s um %s erhalten. Danke!", name, service, date, at),
		}
	default:
		return Message{
			Subject: subject("Termin-Anfrage erhalten"),
			Body:    fmt.Sprintf("Hallo %s, wir haben deine Anfrage am %s um %s für %s erhalten.", name, date, at, service),
		}
	}
}

func subject(s string) string {
	return s + " – " + brand
}

// FormatDate turns YYYY-MM-DD into DD.MM.YYYY; other input is returned as is.
func FormatDate(iso string) string {
	iso = strings.TrimSpace(iso)
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006")
}
