package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/notification-service/internal/storage"
	"github.com/parrylicious/salonbook/services/notification-service/internal/templates"
)

var eventKinds = map[string]templates.Kind{
	outbox.TypeBookingRequested: templates.KindRequested,
	outbox.TypeBookingConfirmed: templates.KindConfirmed,
	outbox.TypeBookingCanceled:  templates.KindCanceled,
	outbox.TypeDepositPaid:      templates.KindDepositPaid,
}

// ConsumedEventTypes lists the event types that produce a notification.
func ConsumedEventTypes() []string {
	return []string{
		outbox.TypeBookingRequested,
		outbox.TypeBookingConfirmed,
		outbox.TypeBookingCanceled,
		outbox.TypeDepositPaid,
	}
}

// RequestFromEvent decodes a booking event payload. ok is false for event
// types that do not notify the customer.
func RequestFromEvent(eventType string, payload []byte) (req Request, ok bool, err error) {
	kind, ok := eventKinds[eventType]
	if !ok {
		return Request{}, false, nil
	}
	var evt outbox.BookingEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Request{}, true, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if strings.TrimSpace(evt.BookingID) == "" {
		return Request{}, true, fmt.Errorf("decode %s: booking_id missing", eventType)
	}
	return Request{
		Kind:      kind,
		BookingID: evt.BookingID,
		Data: templates.Data{
			FirstName:   evt.FirstName,
			DateISO:     evt.DateISO,
			Time:        evt.Time,
			ServiceName: evt.ServiceName,
		},
		Email:  evt.Email,
		ToName: evt.FirstName,
		Phone:  evt.Phone,
	}, true, nil
}

// RequestFromBooking addresses the customer stored on b.
func RequestFromBooking(kind templates.Kind, b storage.Booking) Request {
	name := strings.TrimSpace(b.Customer.FirstName + " " + b.Customer.LastName)
	return Request{
		Kind:      kind,
		BookingID: b.ID,
		Data: templates.Data{
			FirstName:   b.Customer.FirstName,
			DateISO:     b.DateISO,
			Time:        b.Time,
			ServiceName: b.ServiceName,
		},
		Email:  b.Customer.Email,
		ToName: name,
		Phone:  b.Customer.Phone,
	}
}
