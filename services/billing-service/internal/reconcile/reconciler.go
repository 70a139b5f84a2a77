// Package reconcile re-checks deposits that stayed pending, for customers
// who closed the browser before returning from checkout and webhooks that
// never arrived.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
)

// PendingSource is implemented by *storage.Repository.
type PendingSource interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]storage.Booking, error)
}

// Settler is implemented by *payments.Service.
type Settler interface {
	Reconcile(ctx context.Context, b storage.Booking) (string, error)
}

// LeaderLock elects a single reconciling instance. TryLock returns a release
// func when the lock was taken.
type LeaderLock interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type Config struct {
	Interval     time.Duration
	PendingAfter time.Duration
	BatchSize    int
	// RetryEvery is how long a follower waits before trying the lock again.
	RetryEvery time.Duration
}

type Reconciler struct {
	source  PendingSource
	settler Settler
	lock    LeaderLock
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func New(source PendingSource, settler Settler, lock LeaderLock, logger *slog.Logger, cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.PendingAfter <= 0 {
		cfg.PendingAfter = 30 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.RetryEvery <= 0 {
		cfg.RetryEvery = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{source: source, settler: settler, lock: lock, logger: logger, cfg: cfg, now: time.Now}
}

// Run blocks until ctx is done. Only the instance holding the leader lock
// reconciles; the others keep retrying the lock.
func (r *Reconciler) Run(ctx context.Context) {
	release, ok := r.acquire(ctx)
	if !ok {
		return
	}
	defer release()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on startup to catch up after downtime.
	r.ReconcileOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

func (r *Reconciler) acquire(ctx context.Context) (func(), bool) {
	if r.lock == nil {
		return func() {}, true
	}
	for {
		release, ok, err := r.lock.TryLock(ctx)
		switch {
		case err != nil:
			r.logger.Error("payment reconcile: leader lock failed", "err", err)
		case ok:
			r.logger.Info("payment reconcile: leader lock acquired")
			return release, true
		default:
			r.logger.Debug("payment reconcile: leader lock held elsewhere")
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(r.cfg.RetryEvery):
		}
	}
}

// ReconcileOnce settles one batch of stale pending bookings and returns how
// many changed state.
func (r *Reconciler) ReconcileOnce(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.PendingAfter)
	list, err := r.source.ListStalePending(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("payment reconcile: list pending failed", "err", err)
		return 0
	}

	settled := 0
	for _, b := range list {
		if ctx.Err() != nil {
			return settled
		}
		status, err := r.settler.Reconcile(ctx, b)
		if err != nil {
			r.logger.Warn("payment reconcile: booking failed", "booking_id", b.ID, "session_id", b.SessionID, "err", err)
			continue
		}
		if status != b.PaymentStatus {
			settled++
			r.logger.Info("payment reconcile: booking settled", "booking_id", b.ID, "payment_status", status)
		}
	}
	return settled
}
