package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// windowCounter counts hits for key in the current fixed window and
// reports how long until that window resets.
type windowCounter interface {
	hit(ctx context.Context, key string) (count int64, reset time.Duration, err error)
}

// limitRequests rejects clients that exceed limit hits per window with 429.
// When the counter fails, failOpen decides between serving and a 503.
func limitRequests(c windowCounter, limit int, logger *slog.Logger, failOpen bool) Middleware {
	ceiling := int64(limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, reset, err := c.hit(r.Context(), clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter unavailable", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "rate limiter unavailable")
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(ceiling, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(ceiling-count, 0), 10))
			if count > ceiling {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(reset)))
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter keeps fixed-window counters in process memory. Use
// RedisRateLimiter when more than one gateway instance runs.
type RateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*bucket
}

type bucket struct {
	count   int64
	resetAt time.Time
}

const sweepThreshold = 10000

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	limit, window = limiterDefaults(limit, window)
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: map[string]*bucket{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return limitRequests(rl, rl.limit, nil, true)
}

func (rl *RateLimiter) hit(_ context.Context, key string) (int64, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win := rl.windows[key]
	if win == nil || !now.Before(win.resetAt) {
		if len(rl.windows) > sweepThreshold {
			for k, old := range rl.windows {
				if !now.Before(old.resetAt) {
					delete(rl.windows, k)
				}
			}
		}
		win = &bucket{resetAt: now.Add(rl.window)}
		rl.windows[key] = win
	}
	win.count++
	return win.count, win.resetAt.Sub(now), nil
}

func limiterDefaults(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return limit, window
}

func retryAfterSeconds(d time.Duration) int {
	if secs := int((d + time.Second - 1) / time.Second); secs > 1 {
		return secs
	}
	return 1
}

// clientKey is the first X-Forwarded-For hop, or the peer address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
