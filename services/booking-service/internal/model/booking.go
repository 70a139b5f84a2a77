package model

import (
	"time"

	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
)

const (
	StatusRequested = "requested"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
)

const (
	PaymentUnpaid   = "unpaid"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type Booking struct {
	ID                      string     `json:"id"`
	UserID                  string     `json:"userId"`
	Status                  string     `json:"status"`
	CreatedAt               time.Time  `json:"createdAt"`
	ServiceID               string     `json:"serviceId"`
	ServiceName             string     `json:"serviceName"`
	DurationMin             int        `json:"durationMin"`
	PriceFrom               float64    `json:"priceFrom"`
	Deposit                 float64    `json:"deposit"`
	StylistID               string     `json:"stylistId"`
	StylistName             string     `json:"stylistName"`
	DateISO                 string     `json:"dateISO"`
	Time                    string     `json:"time"`
	Customer                Customer   `json:"customer"`
	DepositPaid             bool       `json:"depositPaid"`
	PaymentStatus           string     `json:"paymentStatus"`
	PaymentProvider         string     `json:"paymentProvider,omitempty"`
	PaymentReference        string     `json:"paymentReference,omitempty"`
	StripeCheckoutSessionID string     `json:"stripeCheckoutSessionId,omitempty"`
	PaymentIntentID         string     `json:"paymentIntentId,omitempty"`
	PaymentReceiptURL       string     `json:"paymentReceiptUrl,omitempty"`
	PaidAt                  *time.Time `json:"paidAt,omitempty"`
	DepositDue              bool       `json:"depositDue"`
}

// NewBooking is what the booking flow writes; the store assigns identity,
// status and timestamps.
type NewBooking struct {
	UserID      string
	ServiceID   string
	ServiceName string
	DurationMin int
	PriceFrom   float64
	Deposit     float64
	StylistID   string
	StylistName string
	DateISO     string
	Time        string
	Customer    Customer
}

// EffectivePaymentStatus falls back to the deposit flag for rows written
// before payment_status existed.
func EffectivePaymentStatus(status string, depositPaid bool) string {
	if status != "" {
		return status
	}
	if depositPaid {
		return PaymentPaid
	}
	return PaymentUnpaid
}

// Slot returns the chair occupancy of b for availability checks.
func (b Booking) Slot() availability.Booking {
	return availability.Booking{
		ID:          b.ID,
		StylistID:   b.StylistID,
		DateISO:     b.DateISO,
		Time:        b.Time,
		DurationMin: b.DurationMin,
		Status:      b.Status,
	}
}

func Slots(bookings []Booking) []availability.Booking {
	out := make([]availability.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Slot())
	}
	return out
}

// IsOpenPayment reports a deposit still owed on a live booking.
func (b Booking) IsOpenPayment() bool {
	return b.Status != StatusCanceled && !b.DepositPaid && b.PaymentStatus != PaymentPaid
}

// ValidStatus reports whether s is a booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from one status to
// another. Writing the current status again is allowed; canceled is terminal.
func CanTransition(from, to string) bool {
	if from == to {
		return ValidStatus(to)
	}
	switch from {
	case StatusRequested:
		return to == StatusConfirmed || to == StatusCanceled
	case StatusConfirmed:
		return to == StatusCanceled
	default:
		return false
	}
}

// CanPayDeposit reports whether a checkout may be started for b.
func (b Booking) CanPayDeposit() bool {
	return b.IsOpenPayment() && b.Deposit > 0
}
