package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

const bookingColumns = `id::text, COALESCE(user_id::text, ''), status, created_at,
	service_id, service_name, duration_min,
	COALESCE(price_from, 0)::float8, COALESCE(deposit, 0)::float8,
	stylist_id, COALESCE(stylist_name, ''), date_iso, time,
	COALESCE(customer, '{}'::jsonb), COALESCE(deposit_paid, false),
	payment_status, payment_provider, payment_reference, stripe_checkout_session_id,
	payment_intent_id, payment_receipt_url, paid_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (model.Booking, error) {
	var (
		b          model.Booking
		customer   []byte
		payStatus  *string
		provider   *string
		reference  *string
		sessionID  *string
		intentID   *string
		receiptURL *string
		paidAt     *time.Time
	)
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Status,
		&b.CreatedAt,
		&b.ServiceID,
		&b.ServiceName,
		&b.DurationMin,
		&b.PriceFrom,
		&b.Deposit,
		&b.StylistID,
		&b.StylistName,
		&b.DateISO,
		&b.Time,
		&customer,
		&b.DepositPaid,
		&payStatus,
		&provider,
		&reference,
		&sessionID,
		&intentID,
		&receiptURL,
		&paidAt,
	); err != nil {
		return model.Booking{}, err
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &b.Customer); err != nil {
			return model.Booking{}, err
		}
	}
	b.PaymentStatus = model.EffectivePaymentStatus(deref(payStatus), b.DepositPaid)
	b.PaymentProvider = deref(provider)
	b.PaymentReference = deref(reference)
	b.StripeCheckoutSessionID = deref(sessionID)
	b.PaymentIntentID = deref(intentID)
	b.PaymentReceiptURL = deref(receiptURL)
	b.PaidAt = paidAt
	b.DepositDue = b.CanPayDeposit()
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func customerJSON(c model.Customer) ([]byte, error) {
	return json.Marshal(c)
}

func (t *txStore) CreateBookingRPC(ctx context.Context, in model.NewBooking) (model.Booking, error) {
	customer, err := customerJSON(in.Customer)
	if err != nil {
		return model.Booking{}, err
	}
	var b model.Booking
	err = savepoint(ctx, t.tx, func(sp pgx.Tx) error {
		var scanErr error
		b, scanErr = scanBooking(sp.QueryRow(ctx, `
			SELECT `+bookingColumns+`
			FROM create_booking_secure(
				p_service_id => $1, p_service_name => $2, p_duration_min => $3,
				p_price_from => $4, p_deposit => $5, p_stylist_id => $6, p_stylist_name => $7,
				p_date_iso => $8, p_time => $9, p_customer => $10, p_deposit_paid => false
			)
		`, in.ServiceID, in.ServiceName, in.DurationMin, in.PriceFrom, in.Deposit,
			in.StylistID, in.StylistName, in.DateISO, in.Time, customer))
		return scanErr
	})
	return b, err
}

func (t *txStore) InsertBooking(ctx context.Context, in model.NewBooking) (model.Booking, error) {
	customer, err := customerJSON(in.Customer)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		INSERT INTO bookings
			(user_id, status, service_id, service_name, duration_min, price_from, deposit,
			 stylist_id, stylist_name, date_iso, time, customer, deposit_paid, payment_status)
		VALUES ($1, 'requested', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, 'unpaid')
		RETURNING `+bookingColumns,
		in.UserID, in.ServiceID, in.ServiceName, in.DurationMin, in.PriceFrom, in.Deposit,
		in.StylistID, in.StylistName, in.DateISO, in.Time, customer))
	return b, mapWriteErr(err)
}

func (t *txStore) ListDay(ctx context.Context, dateISO string) ([]model.Booking, error) {
	return listDay(ctx, t.tx, dateISO)
}

// ListDay returns the non-canceled bookings of a day.
func (s *Store) ListDay(ctx context.Context, dateISO string) ([]model.Booking, error) {
	return listDay(ctx, s.db, dateISO)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listDay(ctx context.Context, q queryer, dateISO string) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date_iso = $1 AND status <> 'canceled'
		ORDER BY time
	`, dateISO)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (t *txStore) SlotAvailableRPC(ctx context.Context, req availability.Request) (bool, error) {
	var exclude any
	if req.ExcludeBookingID != "" {
		exclude = req.ExcludeBookingID
	}
	var ok bool
	err := savepoint(ctx, t.tx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx, `
			SELECT slot_is_available(
				p_date_iso => $1, p_time => $2, p_duration_min => $3,
				p_stylist_id => $4, p_exclude_booking_id => $5
			)
		`, req.DateISO, req.Time, req.DurationMin, req.StylistID, exclude).Scan(&ok)
	})
	return ok, err
}

func (t *txStore) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	if id == "" {
		return model.Booking{}, errEmptyID
	}
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id::text = $1
		FOR UPDATE
	`, id))
	return b, mapWriteErr(err)
}

func (t *txStore) SetStatusRPC(ctx context.Context, id, status string) (model.Booking, error) {
	var b model.Booking
	err := savepoint(ctx, t.tx, func(sp pgx.Tx) error {
		var scanErr error
		b, scanErr = scanBooking(sp.QueryRow(ctx, `
			SELECT `+bookingColumns+`
			FROM set_booking_status(p_booking_id => $1, p_status => $2)
		`, id, status))
		return scanErr
	})
	return b, err
}

func (t *txStore) CancelMineRPC(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := savepoint(ctx, t.tx, func(sp pgx.Tx) error {
		var scanErr error
		b, scanErr = scanBooking(sp.QueryRow(ctx, `
			SELECT `+bookingColumns+`
			FROM cancel_my_booking(p_booking_id => $1)
		`, id))
		return scanErr
	})
	return b, err
}

func (t *txStore) UpdateStatus(ctx context.Context, id, status string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE id::text = $1
		RETURNING `+bookingColumns,
		id, status))
	return b, mapWriteErr(err)
}

func (t *txStore) DeleteBookingsByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE user_id::text = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if id == "" {
		return model.Booking{}, errEmptyID
	}
	b, err := scanBooking(s.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id::text = $1
	`, id))
	return b, mapWriteErr(err)
}

// BookingFilter narrows ListBookings. An empty UserID lists every user's
// bookings.
type BookingFilter struct {
	UserID string
	Status string
	Query  string
	Limit  int
}

func (s *Store) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 500
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1 = '' OR user_id::text = $1)
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR concat_ws(' ', id::text, service_name, date_iso,
				customer->>'firstName', customer->>'lastName', customer->>'phone', customer->>'email')
				ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4
	`, f.UserID, f.Status, escapeLike(f.Query), f.Limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

type Stats struct {
	Bookings     int64 `json:"bookings"`
	Waitlist     int64 `json:"waitlist"`
	OpenPayments int64 `json:"openPayments"`
}

// Stats counts the dashboard KPIs, scoped to userID unless it is empty.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM bookings WHERE ($1 = '' OR user_id::text = $1)),
			(SELECT count(*) FROM waitlist WHERE ($1 = '' OR user_id::text = $1)),
			(SELECT count(*) FROM bookings
				WHERE ($1 = '' OR user_id::text = $1)
					AND status <> 'canceled'
					AND NOT COALESCE(deposit_paid, false)
					AND COALESCE(payment_status, 'unpaid') <> 'paid')
	`, userID).Scan(&st.Bookings, &st.Waitlist, &st.OpenPayments)
	return st, err
}
