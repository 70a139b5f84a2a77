package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/db"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

// Store is the booking service's view of the Supabase database.
type Store struct {
	db     db.Querier
	outbox *outbox.Repository
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q, outbox: outbox.NewRepository()}
}

// TxStore is what a booking transaction can do. The concrete implementation
// runs every RPC inside a savepoint so a missing procedure can be recovered
// from with a table operation in the same transaction.
type TxStore interface {
	CreateBookingRPC(ctx context.Context, in model.NewBooking) (model.Booking, error)
	InsertBooking(ctx context.Context, in model.NewBooking) (model.Booking, error)
	ListDay(ctx context.Context, dateISO string) ([]model.Booking, error)
	SlotAvailableRPC(ctx context.Context, req availability.Request) (bool, error)
	GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error)
	SetStatusRPC(ctx context.Context, id, status string) (model.Booking, error)
	CancelMineRPC(ctx context.Context, id string) (model.Booking, error)
	UpdateStatus(ctx context.Context, id, status string) (model.Booking, error)
	DeleteBookingsByUser(ctx context.Context, userID string) (int64, error)
	DeleteWaitlistByUser(ctx context.Context, userID string) (int64, error)
	InsertEvent(ctx context.Context, evt outbox.Event) error
}

type txStore struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// WithTx runs fn in a transaction that carries p as the request's JWT
// claims, so database functions relying on auth.uid() see the caller.
func (s *Store) WithTx(ctx context.Context, p auth.Principal, fn func(TxStore) error) error {
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := setClaims(ctx, tx, p); err != nil {
			return fmt.Errorf("set claims: %w", err)
		}
		return fn(&txStore{tx: tx, outbox: s.outbox})
	})
}

func setClaims(ctx context.Context, tx pgx.Tx, p auth.Principal) error {
	claims, err := json.Marshal(map[string]string{
		"sub":   p.UserID,
		"email": p.Email,
		"role":  "authenticated",
	})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims))
	return err
}

// savepoint runs fn in a nested transaction. A missing procedure is reported
// as model.ErrProcedureMissing with the outer transaction still usable.
func savepoint(ctx context.Context, tx pgx.Tx, fn func(pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		if db.IsUndefinedFunction(err) {
			return fmt.Errorf("%w: %v", model.ErrProcedureMissing, err)
		}
		return mapWriteErr(err)
	}
	return sp.Commit(ctx)
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsSlotConflict(err):
		return fmt.Errorf("%w: %v", availability.ErrSlotUnavailable, err)
	case db.IsNotFound(err):
		return model.ErrNotFound
	case db.IsPermissionDenied(err):
		return fmt.Errorf("%w: %v", model.ErrForbidden, err)
	default:
		return err
	}
}

func (t *txStore) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var errEmptyID = errors.New("id is required")
