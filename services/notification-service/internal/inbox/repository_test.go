package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO inbox_events").WithArgs("evt-1", "booking.confirmed.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO inbox_events").WithArgs("evt-1", "booking.confirmed.v1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("INSERT INTO inbox_events").WithArgs("evt-2", "booking.confirmed.v1").
		WillReturnError(errors.New("connection reset"))

	repo := NewRepository(mock)
	ok, err := repo.Record(context.Background(), "evt-1", "booking.confirmed.v1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Record(context.Background(), "evt-1", "booking.confirmed.v1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.Record(context.Background(), "evt-2", "booking.confirmed.v1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForget(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM inbox_events").WithArgs("evt-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, NewRepository(mock).Forget(context.Background(), "evt-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
