// Package payments runs the deposit checkout for bookings: creating Stripe
// checkout sessions, verifying them on return, applying webhook deliveries
// and re-checking stale pending payments.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/metrics"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
	"github.com/parrylicious/salonbook/services/billing-service/internal/stripeclient"
)

const (
	StatusUnpaid   = "unpaid"
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"

	bookingCanceled = "canceled"
	provider        = "stripe"
)

var (
	ErrNotConfigured   = errors.New("stripe is not configured")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("not allowed for this booking")
	ErrAlreadyPaid     = errors.New("deposit already paid")
	ErrBookingCanceled = errors.New("canceled bookings cannot be paid")
	ErrUnverifiedEvent = errors.New("stripe event could not be verified")
	ErrNotFound        = storage.ErrNotFound
)

// Store is implemented by *storage.Repository.
type Store interface {
	GetBooking(ctx context.Context, id string) (storage.Booking, error)
	WithTx(ctx context.Context, fn func(storage.Tx) error) error
}

type Config struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	// AllowedOrigins lists the origins return URLs may point to. The request
	// Origin and SiteURL are always allowed.
	AllowedOrigins []string
	// SiteURL is the origin used for default return URLs when the request
	// carries no Origin header.
	SiteURL string
}

type Service struct {
	store   Store
	gateway stripeclient.Gateway
	cfg     Config
	metrics *metrics.PaymentMetrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the payment service. gateway may be nil when no Stripe
// secret key is configured; checkout and verification then report
// ErrNotConfigured.
func NewService(store Store, gateway stripeclient.Gateway, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = 300 * time.Second
	}
	cfg.WebhookSecret = strings.TrimSpace(cfg.WebhookSecret)
	cfg.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, gateway: gateway, cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CheckoutInput struct {
	BookingID  string
	SuccessURL string
	CancelURL  string
	// Origin and Host come from the request and seed the default return URLs.
	Origin string
	Host   string
}

type CheckoutResult struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	BookingID string `json:"bookingId"`
}

// CreateCheckout opens a Stripe checkout session for the booking deposit and
// marks the booking's payment as pending.
func (s *Service) CreateCheckout(ctx context.Context, p auth.Principal, in CheckoutInput) (CheckoutResult, error) {
	if s.gateway == nil {
		return CheckoutResult{}, ErrNotConfigured
	}
	bookingID := strings.TrimSpace(in.BookingID)
	if bookingID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: bookingId is required", ErrInvalidInput)
	}
	b, err := s.authorizedBooking(ctx, p, bookingID)
	if err != nil {
		return CheckoutResult{}, err
	}
	switch {
	case b.DepositPaid || b.PaymentStatus == StatusPaid:
		return CheckoutResult{}, ErrAlreadyPaid
	case b.Status == bookingCanceled:
		return CheckoutResult{}, ErrBookingCanceled
	}
	amount := AmountCents(b.Deposit)
	if amount <= 0 {
		return CheckoutResult{}, fmt.Errorf("%w: booking has no deposit", ErrInvalidInput)
	}

	successURL, cancelURL, err := s.returnURLs(in, b.ID)
	if err != nil {
		return CheckoutResult{}, err
	}

	serviceName := b.ServiceName
	if serviceName == "" {
		serviceName = "Termin"
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.CheckoutParams{
		BookingID:     b.ID,
		CustomerEmail: b.Customer.Email,
		ProductName:   "Deposit: " + serviceName,
		AmountCents:   amount,
		Currency:      "eur",
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"booking_id":   b.ID,
			"user_id":      b.UserID,
			"service_name": b.ServiceName,
			"date_iso":     b.DateISO,
			"time":         b.Time,
			"first_name":   b.Customer.FirstName,
			"last_name":    b.Customer.LastName,
			"phone":        b.Customer.Phone,
		},
	})
	if err != nil {
		s.metrics.ObserveCheckout("stripe_error")
		return CheckoutResult{}, err
	}

	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.ApplyPayment(ctx, b.ID, storage.PaymentPatch{
			Status:    StatusPending,
			SessionID: session.ID,
			Reference: session.ID,
		})
		return err
	})
	if err != nil {
		s.metrics.ObserveCheckout("db_error")
		return CheckoutResult{}, fmt.Errorf("mark booking %s pending: %w", b.ID, err)
	}

	s.metrics.ObserveCheckout("created")
	s.logger.Info("checkout session created", "booking_id", b.ID, "session_id", session.ID, "amount_cents", amount)
	return CheckoutResult{ID: session.ID, URL: session.URL, BookingID: b.ID}, nil
}

type Verification struct {
	ID                string            `json:"id"`
	Paid              bool              `json:"paid"`
	PaymentStatus     string            `json:"payment_status"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
	BookingID         string            `json:"booking_id,omitempty"`
	PaymentIntentID   string            `json:"payment_intent_id,omitempty"`
	PaymentReceiptURL string            `json:"payment_receipt_url,omitempty"`
}

// VerifySession reads a checkout session back after the customer returns
// and settles the booking's payment fields from it.
func (s *Service) VerifySession(ctx context.Context, p auth.Principal, sessionID string) (Verification, error) {
	if s.gateway == nil {
		return Verification{}, ErrNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Verification{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return Verification{}, err
	}

	out := Verification{
		ID:                session.ID,
		Paid:              session.Paid(),
		PaymentStatus:     session.PaymentStatus,
		AmountTotal:       session.AmountTotal,
		Currency:          session.Currency,
		Metadata:          session.Metadata,
		BookingID:         session.BookingID(),
		PaymentIntentID:   session.PaymentIntentID,
		PaymentReceiptURL: session.ReceiptURL,
	}
	if out.Currency == "" {
		out.Currency = "eur"
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if out.BookingID == "" {
		return out, nil
	}

	if _, err := s.authorizedBooking(ctx, p, out.BookingID); err != nil {
		return Verification{}, err
	}
	target := StatusUnpaid
	if out.Paid {
		target = StatusPaid
	}
	if _, err := s.settle(ctx, out.BookingID, session, target); err != nil {
		return Verification{}, err
	}
	return out, nil
}

func (s *Service) authorizedBooking(ctx context.Context, p auth.Principal, id string) (storage.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return storage.Booking{}, err
	}
	if b.UserID != p.UserID && !p.IsStaff() {
		return storage.Booking{}, ErrForbidden
	}
	return b, nil
}

// settle writes the payment outcome of session onto the booking inside one
// transaction and emits a deposit event when the outcome changes. Moves the
// deposit state machine rejects are dropped silently.
func (s *Service) settle(ctx context.Context, bookingID string, session stripeclient.Session, target string) (bool, error) {
	changed := false
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !acceptsOutcome(current, session.ID, target) {
			return nil
		}
		return s.applyOutcome(ctx, tx, current, session, target, &changed)
	})
	return changed, err
}

func (s *Service) applyOutcome(ctx context.Context, tx storage.Tx, current storage.Booking, session stripeclient.Session, target string, changed *bool) error {
	patch := PatchFromSession(session, target, s.now())
	updated, err := tx.ApplyPayment(ctx, current.ID, patch)
	if err != nil {
		return err
	}
	if current.PaymentStatus == target {
		return nil
	}
	*changed = true

	var eventType string
	switch target {
	case StatusPaid:
		eventType = outbox.TypeDepositPaid
	case StatusFailed:
		eventType = outbox.TypeDepositFailed
	default:
		return nil
	}
	evt, err := outbox.NewBookingEvent(eventType, eventPayload(updated, patch.Reference))
	if err != nil {
		return err
	}
	return tx.InsertEvent(ctx, evt)
}

// PatchFromSession maps a checkout session onto the booking payment columns.
func PatchFromSession(session stripeclient.Session, status string, now time.Time) storage.PaymentPatch {
	patch := storage.PaymentPatch{
		Status:      status,
		DepositPaid: status == StatusPaid,
		SessionID:   session.ID,
		IntentID:    session.PaymentIntentID,
		Reference:   session.PaymentIntentID,
		ReceiptURL:  session.ReceiptURL,
	}
	if patch.Reference == "" {
		patch.Reference = session.ID
	}
	if patch.DepositPaid {
		paidAt := now.UTC()
		patch.PaidAt = &paidAt
	}
	return patch
}

func eventPayload(b storage.Booking, reference string) outbox.BookingEvent {
	return outbox.BookingEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		Status:      b.Status,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		DateISO:     b.DateISO,
		Time:        b.Time,
		FirstName:   b.Customer.FirstName,
		Email:       b.Customer.Email,
		Phone:       b.Customer.Phone,
		Deposit:     b.Deposit,
		PaymentRef:  reference,
	}
}

// AmountCents converts a euro amount to Stripe's minor units.
func AmountCents(deposit float64) int64 {
	if deposit <= 0 || math.IsNaN(deposit) || math.IsInf(deposit, 0) {
		return 0
	}
	return int64(math.Round(deposit * 100))
}

func (s *Service) returnURLs(in CheckoutInput, bookingID string) (string, string, error) {
	origin := strings.TrimRight(strings.TrimSpace(in.Origin), "/")
	base := origin
	if base == "" {
		base = s.cfg.SiteURL
	}
	if base == "" && in.Host != "" {
		base = "https://" + in.Host
	}

	success := strings.TrimSpace(in.SuccessURL)
	cancel := strings.TrimSpace(in.CancelURL)
	if (success == "" || cancel == "") && base == "" {
		return "", "", fmt.Errorf("%w: no origin for return URLs", ErrInvalidInput)
	}
	id := url.QueryEscape(bookingID)
	if success == "" {
		success = base + "/booking.html?payment=success&session_id={CHECKOUT_SESSION_ID}&booking_id=" + id
	}
	if cancel == "" {
		cancel = base + "/booking.html?payment=cancel&booking_id=" + id
	}

	allowed := append([]string{origin, s.cfg.SiteURL}, s.cfg.AllowedOrigins...)
	if in.SuccessURL != "" && !allowedReturnURL(success, allowed) {
		return "", "", fmt.Errorf("%w: return URL is not on an allowed origin", ErrInvalidInput)
	}
	if in.CancelURL != "" && !allowedReturnURL(cancel, allowed) {
		return "", "", fmt.Errorf("%w: return URL is not on an allowed origin", ErrInvalidInput)
	}
	return success, cancel, nil
}

// allowedReturnURL reports whether raw is an absolute http(s) URL on one of
// the origins. With no origins configured any absolute URL is accepted.
func allowedReturnURL(raw string, origins []string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	target := strings.ToLower(u.Scheme + "://" + u.Host)
	configured := false
	for _, o := range origins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "" {
			continue
		}
		configured = true
		if o == "*" || o == target {
			return true
		}
	}
	return !configured
}
