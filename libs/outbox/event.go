package outbox

import (
	"encoding/json"
	"fmt"
)

// Event types published by the booking and billing services. The Kafka topic
// name equals the event type.
const (
	TypeBookingRequested = "booking.requested.v1"
	TypeBookingConfirmed = "booking.confirmed.v1"
	TypeBookingCanceled  = "booking.canceled.v1"
	TypeDepositPaid      = "payment.deposit.paid.v1"
	TypeDepositFailed    = "payment.deposit.failed.v1"
	AggregateBooking     = "booking"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// BookingEvent is the payload shared by every booking and payment event.
type BookingEvent struct {
	BookingID   string  `json:"booking_id"`
	UserID      string  `json:"user_id,omitempty"`
	Status      string  `json:"status"`
	ServiceID   string  `json:"service_id,omitempty"`
	ServiceName string  `json:"service_name,omitempty"`
	DateISO     string  `json:"date_iso"`
	Time        string  `json:"time"`
	StylistID   string  `json:"stylist_id,omitempty"`
	FirstName   string  `json:"first_name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Deposit     float64 `json:"deposit,omitempty"`
	PaymentRef  string  `json:"payment_reference,omitempty"`
}

// NewBookingEvent marshals payload into an Event for the booking aggregate.
func NewBookingEvent(eventType string, payload BookingEvent) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   payload.BookingID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
