package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/parrylicious/salonbook/libs/db"
)

var ErrNotFound = errors.New("booking not found")

// Notification is one row of the dispatch log.
type Notification struct {
	BookingID string
	EventType string
	Channel   string
	Recipient string
	Provider  string
	Status    string
	Error     string
	Payload   map[string]any
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Booking is what a notification needs to know about a booking row.
type Booking struct {
	ID          string
	UserID      string
	Status      string
	ServiceName string
	DateISO     string
	Time        string
	Customer    Customer
}

type Repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO notifications (booking_id, event_type, channel, recipient, provider, status, error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.BookingID, n.EventType, n.Channel, n.Recipient, n.Provider, n.Status, nullIfEmpty(n.Error), payload)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Booking{}, ErrNotFound
	}
	var (
		b        Booking
		customer []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id::text, COALESCE(user_id::text, ''), status, COALESCE(service_name, ''),
			date_iso, time, COALESCE(customer, '{}'::jsonb)
		FROM bookings
		WHERE id::text = $1
	`, id).Scan(&b.ID, &b.UserID, &b.Status, &b.ServiceName, &b.DateISO, &b.Time, &customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &b.Customer); err != nil {
			return Booking{}, fmt.Errorf("decode customer: %w", err)
		}
	}
	return b, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
