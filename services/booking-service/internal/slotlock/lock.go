package slotlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

// Locker serializes the check-then-insert fallback for one calendar day.
type Locker interface {
	WithDayLock(ctx context.Context, dateISO string, fn func(ctx context.Context) error) error
}

type Options struct {
	TTL      time.Duration
	Attempts int
	Backoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = 50 * time.Millisecond
	}
	return o
}

func Key(dateISO string) string {
	return "lock:day:" + dateISO
}

type redisLocker struct {
	client redis.UniversalClient
	opts   Options
}

func NewRedis(client redis.UniversalClient, opts Options) Locker {
	return &redisLocker{client: client, opts: opts.withDefaults()}
}

func (l *redisLocker) WithDayLock(ctx context.Context, dateISO string, fn func(ctx context.Context) error) error {
	key := Key(dateISO)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.opts.TTL)
	defer cancel()

	return fn(lockCtx)
}

func (l *redisLocker) acquire(ctx context.Context, key, token string) error {
	for attempt := 0; attempt < l.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * l.opts.Backoff):
			}
		}
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire day lock: %w", err)
		}
		if ok {
			return nil
		}
	}
	return model.ErrSlotBusy
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release day lock: %w", err)
	}
	return nil
}

// Local is an in-process Locker for single-replica deployments without Redis.
// A day's entry lives only while some caller holds or waits for it.
type Local struct {
	mu   sync.Mutex
	days map[string]*dayLock
	opts Options
}

type dayLock struct {
	ch   chan struct{}
	refs int
}

func NewLocal(opts Options) *Local {
	return &Local{days: make(map[string]*dayLock), opts: opts.withDefaults()}
}

func (l *Local) acquire(dateISO string) *dayLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.days[dateISO]
	if !ok {
		d = &dayLock{ch: make(chan struct{}, 1)}
		l.days[dateISO] = d
	}
	d.refs++
	return d
}

func (l *Local) release(dateISO string, d *dayLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d.refs--
	if d.refs == 0 {
		delete(l.days, dateISO)
	}
}

func (l *Local) WithDayLock(ctx context.Context, dateISO string, fn func(ctx context.Context) error) error {
	d := l.acquire(dateISO)
	defer l.release(dateISO, d)
	ch := d.ch

	wait := time.Duration(l.opts.Attempts) * l.opts.Backoff
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return model.ErrSlotBusy
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	lockCtx, cancel := context.WithTimeout(ctx, l.opts.TTL)
	defer cancel()

	return fn(lockCtx)
}
