// Package proxy routes the public API to the booking, billing and
// notification services.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/parrylicious/salonbook/libs/httpx"
)

// WebhookPath is reached by Stripe, not by browsers.
const WebhookPath = "/api/v1/payments/stripe-webhook"

type Upstreams struct {
	Booking      *url.URL
	Billing      *url.URL
	Notification *url.URL
}

func ParseUpstreams(booking, billing, notification string) (Upstreams, error) {
	var (
		u   Upstreams
		err error
	)
	if u.Booking, err = url.Parse(booking); err != nil {
		return Upstreams{}, fmt.Errorf("booking url: %w", err)
	}
	if u.Billing, err = url.Parse(billing); err != nil {
		return Upstreams{}, fmt.Errorf("billing url: %w", err)
	}
	if u.Notification, err = url.Parse(notification); err != nil {
		return Upstreams{}, fmt.Errorf("notification url: %w", err)
	}
	return u, nil
}

// Register mounts the proxies on mux. More specific prefixes win, so
// everything under /api/v1 that is not payments or notifications goes to the
// booking service.
func Register(mux *http.ServeMux, u Upstreams, transport http.RoundTripper, logger *slog.Logger) {
	booking := New("booking", u.Booking, transport, logger)
	billing := New("billing", u.Billing, transport, logger)
	notification := New("notification", u.Notification, transport, logger)

	registerPrefix(mux, "/api/v1/payments", billing)
	registerPrefix(mux, "/api/v1/notifications", notification)
	registerPrefix(mux, "/api/v1", booking)
}

func registerPrefix(mux *http.ServeMux, prefix string, h http.Handler) {
	mux.Handle(prefix, h)
	mux.Handle(prefix+"/", h)
}

// New returns a reverse proxy to target that answers upstream failures with a
// JSON 502 and drops upstream CORS headers, which the gateway sets itself.
func New(name string, target *url.URL, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	if logger == nil {
		logger = slog.Default()
	}
	p := httputil.NewSingleHostReverseProxy(target)
	if transport != nil {
		p.Transport = transport
	}
	p.ModifyResponse = func(resp *http.Response) error {
		for key := range resp.Header {
			if strings.HasPrefix(http.CanonicalHeaderKey(key), "Access-Control-") {
				resp.Header.Del(key)
			}
		}
		return nil
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("upstream request failed",
			"upstream", name,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		httpx.WriteError(w, http.StatusBadGateway, "upstream_unavailable", name+" service unavailable")
	}
	return p
}

// Except applies mw to every request whose path does not start with one of
// the given prefixes.
func Except(mw httpx.Middleware, prefixes ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// HealthCheck probes an upstream's /healthz.
func HealthCheck(client *http.Client, base *url.URL) func(context.Context) error {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	target := base.JoinPath("/healthz").String()
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned %d", target, resp.StatusCode)
		}
		return nil
	}
}
