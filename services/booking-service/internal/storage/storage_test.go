package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "user_id", "status", "created_at", "service_id", "service_name", "duration_min",
	"price_from", "deposit", "stylist_id", "stylist_name", "date_iso", "time", "customer",
	"deposit_paid", "payment_status", "payment_provider", "payment_reference",
	"stripe_checkout_session_id", "payment_intent_id", "payment_receipt_url", "paid_at",
}

func bookingRows(id, status string) *pgxmock.Rows {
	return pgxmock.NewRows(bookingCols).AddRow(
		id, "user-1", status, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		"comb_twist", "Comb Twist", 90, float64(45), float64(25),
		"auto", "Egal (automatisch)", "2026-03-10", "11:00",
		[]byte(`{"firstName":"Ada","email":"ada@example.com"}`), false,
		nil, nil, nil, nil, nil, nil, nil,
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newBooking() model.NewBooking {
	return model.NewBooking{
		UserID:      "user-1",
		ServiceID:   "comb_twist",
		ServiceName: "Comb Twist",
		DurationMin: 90,
		PriceFrom:   45,
		Deposit:     25,
		StylistID:   "auto",
		StylistName: "Egal (automatisch)",
		DateISO:     "2026-03-10",
		Time:        "11:00",
		Customer:    model.Customer{FirstName: "Ada", Email: "ada@example.com"},
	}
}

func TestWithTxCreatesViaRPCAndWritesOutbox(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("set_config").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectBegin()
	mock.ExpectQuery("create_booking_secure").WithArgs(anyArgs(10)...).WillReturnRows(bookingRows("bk-1", model.StatusRequested))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO outbox_events").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := NewStore(mock)
	var created model.Booking
	err = store.WithTx(context.Background(), auth.Principal{UserID: "user-1"}, func(tx TxStore) error {
		b, err := tx.CreateBookingRPC(context.Background(), newBooking())
		if err != nil {
			return err
		}
		created = b
		evt, err := outbox.NewBookingEvent(outbox.TypeBookingRequested, outbox.BookingEvent{BookingID: b.ID})
		if err != nil {
			return err
		}
		return tx.InsertEvent(context.Background(), evt)
	})
	require.NoError(t, err)
	require.Equal(t, "bk-1", created.ID)
	require.Equal(t, "Ada", created.Customer.FirstName)
	require.Equal(t, model.PaymentUnpaid, created.PaymentStatus)
	require.True(t, created.DepositDue, "a fresh booking with a deposit owes it")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingRPCFallsBackToInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("set_config").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectBegin()
	mock.ExpectQuery("create_booking_secure").WithArgs(anyArgs(10)...).WillReturnError(&pgconn.PgError{Code: "42883", Message: "function create_booking_secure does not exist"})
	mock.ExpectRollback()
	mock.ExpectQuery("INSERT INTO bookings").WithArgs(anyArgs(11)...).WillReturnRows(bookingRows("bk-2", model.StatusRequested))
	mock.ExpectCommit()

	store := NewStore(mock)
	var created model.Booking
	err = store.WithTx(context.Background(), auth.Principal{UserID: "user-1"}, func(tx TxStore) error {
		_, err := tx.CreateBookingRPC(context.Background(), newBooking())
		if !errors.Is(err, model.ErrProcedureMissing) {
			t.Fatalf("expected ErrProcedureMissing, got %v", err)
		}
		created, err = tx.InsertBooking(context.Background(), newBooking())
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "bk-2", created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRPCSlotRejectionIsSlotUnavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("set_config").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectBegin()
	mock.ExpectQuery("create_booking_secure").WithArgs(anyArgs(10)...).WillReturnError(&pgconn.PgError{Code: "P0001", Message: "slot_unavailable"})
	mock.ExpectRollback()
	mock.ExpectRollback()

	err = NewStore(mock).WithTx(context.Background(), auth.Principal{UserID: "user-1"}, func(tx TxStore) error {
		_, err := tx.CreateBookingRPC(context.Background(), newBooking())
		return err
	})
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotAvailableRPC(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("set_config").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectBegin()
	mock.ExpectQuery("slot_is_available").
		WithArgs("2026-03-10", "14:00", 60, "stylist_b", nil).
		WillReturnRows(pgxmock.NewRows([]string{"slot_is_available"}).AddRow(true))
	mock.ExpectCommit()
	mock.ExpectCommit()

	var ok bool
	err = NewStore(mock).WithTx(context.Background(), auth.Principal{UserID: "user-1"}, func(tx TxStore) error {
		var err error
		ok, err = tx.SlotAvailableRPC(context.Background(), availability.Request{
			DateISO: "2026-03-10", Time: "14:00", DurationMin: 60, StylistID: "stylist_b",
		})
		return err
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsScopesAndEscapes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM bookings").
		WithArgs("user-1", "confirmed", `50\%`, 500).
		WillReturnRows(bookingRows("bk-3", model.StatusConfirmed))

	list, err := NewStore(mock).ListBookings(context.Background(), BookingFilter{UserID: "user-1", Status: "confirmed", Query: "50%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, model.StatusConfirmed, list[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("count").WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"bookings", "waitlist", "open"}).AddRow(int64(7), int64(2), int64(3)))

	st, err := NewStore(mock).Stats(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, Stats{Bookings: 7, Waitlist: 2, OpenPayments: 3}, st)
}

func TestGetBookingNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM bookings").WithArgs("missing").WillReturnRows(pgxmock.NewRows(bookingCols))

	_, err = NewStore(mock).GetBooking(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetRoleByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("UPDATE profiles").WithArgs("kim@example.com", "staff").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "role"}).AddRow("u1", "kim@example.com", "staff"))
	mock.ExpectQuery("UPDATE profiles").WithArgs("nobody@example.com", "admin").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "role"}))

	store := NewStore(mock)
	u, err := store.SetRoleByEmail(context.Background(), " Kim@Example.com ", "staff")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	_, err = store.SetRoleByEmail(context.Background(), "nobody@example.com", "admin")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestWaitlistDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM waitlist").WithArgs("w1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewStore(mock).DeleteWaitlistEntry(context.Background(), "w1")
	require.ErrorIs(t, err, model.ErrNotFound)
}
