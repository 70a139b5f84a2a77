package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLockKey is the pg advisory lock key of the payment reconciler.
const DefaultLockKey int64 = 4242001

// AdvisoryLock holds a session level pg advisory lock on a dedicated pool
// connection for as long as the reconciler runs.
type AdvisoryLock struct {
	pool *pgxpool.Pool
	key  int64
}

func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	if key == 0 {
		key = DefaultLockKey
	}
	return &AdvisoryLock{pool: pool, key: key}
}

func (l *AdvisoryLock) TryLock(ctx context.Context) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}
	release := func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		conn.Release()
	}
	return release, true, nil
}
