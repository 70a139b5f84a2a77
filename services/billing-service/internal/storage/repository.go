package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/parrylicious/salonbook/libs/db"
	"github.com/parrylicious/salonbook/libs/outbox"
)

var (
	ErrNotFound               = errors.New("booking not found")
	ErrDuplicateProviderEvent = errors.New("duplicate provider event")
)

// Repository reads and patches the payment side of the bookings table.
type Repository struct {
	db     db.Querier
	outbox *outbox.Repository
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q, outbox: outbox.NewRepository()}
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Booking is the slice of a booking row the payment flow works with.
type Booking struct {
	ID            string
	UserID        string
	Status        string
	ServiceID     string
	ServiceName   string
	Deposit       float64
	DateISO       string
	Time          string
	Customer      Customer
	DepositPaid   bool
	PaymentStatus string
	SessionID     string
}

// PaymentPatch overwrites every payment column of a booking.
type PaymentPatch struct {
	Status      string
	DepositPaid bool
	SessionID   string
	IntentID    string
	Reference   string
	ReceiptURL  string
	PaidAt      *time.Time
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

// Tx is what a payment transaction can do.
type Tx interface {
	GetBookingForUpdate(ctx context.Context, id string) (Booking, error)
	ApplyPayment(ctx context.Context, id string, p PaymentPatch) (Booking, error)
	RecordProviderEvent(ctx context.Context, evt ProviderEvent) error
	InsertEvent(ctx context.Context, evt outbox.Event) error
}

const bookingColumns = `id::text, COALESCE(user_id::text, ''), status,
	service_id, COALESCE(service_name, ''), COALESCE(deposit, 0)::float8,
	date_iso, time, COALESCE(customer, '{}'::jsonb), COALESCE(deposit_paid, false),
	COALESCE(payment_status, ''), COALESCE(stripe_checkout_session_id, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (Booking, error) {
	var (
		b        Booking
		customer []byte
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Status,
		&b.ServiceID,
		&b.ServiceName,
		&b.Deposit,
		&b.DateISO,
		&b.Time,
		&customer,
		&b.DepositPaid,
		&b.PaymentStatus,
		&b.SessionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &b.Customer); err != nil {
			return Booking{}, fmt.Errorf("decode customer: %w", err)
		}
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = "unpaid"
		if b.DepositPaid {
			b.PaymentStatus = "paid"
		}
	}
	return b, nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (Booking, error) {
	if strings.TrimSpace(id) == "" {
		return Booking{}, ErrNotFound
	}
	return scanBooking(r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id::text = $1
	`, id))
}

// ListStalePending returns live bookings whose checkout has been pending
// since before the cutoff.
func (r *Repository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE payment_status = 'pending'
		  AND status <> 'canceled'
		  AND stripe_checkout_session_id IS NOT NULL
		  AND COALESCE(payment_updated_at, created_at) < $1
		ORDER BY COALESCE(payment_updated_at, created_at)
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithTx runs fn in a transaction; it commits only when fn returns nil.
func (r *Repository) WithTx(ctx context.Context, fn func(Tx) error) error {
	return db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repoTx{tx: tx, outbox: r.outbox})
	})
}

type repoTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *repoTx) GetBookingForUpdate(ctx context.Context, id string) (Booking, error) {
	return scanBooking(t.tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id::text = $1
		FOR UPDATE
	`, id))
}

func (t *repoTx) ApplyPayment(ctx context.Context, id string, p PaymentPatch) (Booking, error) {
	return scanBooking(t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET payment_status = $2,
		    payment_provider = 'stripe',
		    deposit_paid = $3,
		    stripe_checkout_session_id = $4,
		    payment_intent_id = $5,
		    payment_reference = $6,
		    payment_receipt_url = $7,
		    paid_at = $8,
		    payment_updated_at = now()
		WHERE id::text = $1
		RETURNING `+bookingColumns,
		id, p.Status, p.DepositPaid, nullIfEmpty(p.SessionID), nullIfEmpty(p.IntentID),
		nullIfEmpty(p.Reference), nullIfEmpty(p.ReceiptURL), p.PaidAt))
}

// RecordProviderEvent stores a webhook delivery once; replays return
// ErrDuplicateProviderEvent.
func (t *repoTx) RecordProviderEvent(ctx context.Context, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("provider event payload: %w", err)
	}

	tag, err := t.tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}

func (t *repoTx) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
