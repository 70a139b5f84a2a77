package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
)

type stubSource struct {
	list   []storage.Booking
	err    error
	cutoff time.Time
	limit  int
}

func (s *stubSource) ListStalePending(ctx context.Context, before time.Time, limit int) ([]storage.Booking, error) {
	s.cutoff = before
	s.limit = limit
	return s.list, s.err
}

type stubSettler struct {
	mu      sync.Mutex
	results map[string]string
	calls   []string
}

func (s *stubSettler) Reconcile(ctx context.Context, b storage.Booking) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, b.ID)
	status, ok := s.results[b.ID]
	if !ok {
		return "", errors.New("stripe unavailable")
	}
	return status, nil
}

func (s *stubSettler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubLock struct {
	mu       sync.Mutex
	attempts int
	grantOn  int
	released bool
}

func (l *stubLock) TryLock(ctx context.Context) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.attempts < l.grantOn {
		return nil, false, nil
	}
	return func() {
		l.mu.Lock()
		l.released = true
		l.mu.Unlock()
	}, true, nil
}

func pending(id string) storage.Booking {
	return storage.Booking{ID: id, PaymentStatus: "pending", SessionID: "cs_" + id}
}

func TestReconcileOnce(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	source := &stubSource{list: []storage.Booking{pending("a"), pending("b"), pending("c")}}
	settler := &stubSettler{results: map[string]string{"a": "paid", "b": "pending"}}
	r := New(source, settler, nil, nil, Config{PendingAfter: 20 * time.Minute, BatchSize: 10})
	r.now = func() time.Time { return now }

	if got := r.ReconcileOnce(context.Background()); got != 1 {
		t.Fatalf("expected 1 settled booking, got %d", got)
	}
	if !source.cutoff.Equal(now.Add(-20 * time.Minute)) {
		t.Fatalf("unexpected cutoff %s", source.cutoff)
	}
	if source.limit != 10 {
		t.Fatalf("unexpected limit %d", source.limit)
	}
	if settler.count() != 3 {
		t.Fatalf("expected every booking to be tried, got %d", settler.count())
	}
}

func TestReconcileOnceListError(t *testing.T) {
	r := New(&stubSource{err: errors.New("db down")}, &stubSettler{}, nil, nil, Config{})
	if got := r.ReconcileOnce(context.Background()); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestRunWaitsForLeaderLock(t *testing.T) {
	source := &stubSource{list: []storage.Booking{pending("a")}}
	settler := &stubSettler{results: map[string]string{"a": "paid"}}
	lock := &stubLock{grantOn: 2}
	r := New(source, settler, lock, nil, Config{Interval: time.Hour, RetryEvery: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for settler.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reconciler never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	lock.mu.Lock()
	defer lock.mu.Unlock()
	if lock.attempts != 2 {
		t.Fatalf("expected 2 lock attempts, got %d", lock.attempts)
	}
	if !lock.released {
		t.Fatal("expected lock release on shutdown")
	}
}

func TestRunStopsWhileFollower(t *testing.T) {
	lock := &stubLock{grantOn: 1 << 30}
	settler := &stubSettler{}
	r := New(&stubSource{}, settler, lock, nil, Config{RetryEvery: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.Run(ctx)
	if settler.count() != 0 {
		t.Fatal("follower must not reconcile")
	}
}
