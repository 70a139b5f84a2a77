package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/billing-service/internal/payments"
	"github.com/stripe/stripe-go/v79"
)

// PaymentService is implemented by *payments.Service.
type PaymentService interface {
	CreateCheckout(ctx context.Context, p auth.Principal, in payments.CheckoutInput) (payments.CheckoutResult, error)
	VerifySession(ctx context.Context, p auth.Principal, sessionID string) (payments.Verification, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (payments.WebhookResult, error)
}

type Handler struct {
	payments PaymentService
	logger   *slog.Logger
}

func New(svc PaymentService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{payments: svc, logger: logger}
}

// Routes mounts the payment API. The Stripe webhook is public; its
// signature is the authentication.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/stripe-webhook", h.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/checkout-session", h.CreateCheckoutSession)
			r.Get("/verify-session", h.VerifySession)
		})
	})
	return r
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		httpx.WriteError(w, http.StatusServiceUnavailable, "stripe_not_configured", "stripe is not configured")
	case errors.Is(err, payments.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, payments.ErrUnverifiedEvent):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_signature", err.Error())
	case errors.Is(err, payments.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "booking not found")
	case errors.Is(err, payments.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, payments.ErrAlreadyPaid):
		httpx.WriteError(w, http.StatusConflict, "already_paid", err.Error())
	case errors.Is(err, payments.ErrBookingCanceled):
		httpx.WriteError(w, http.StatusConflict, "booking_canceled", err.Error())
	default:
		h.logger.Error("payment request failed", "err", err, "method", r.Method, "path", r.URL.Path)
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			httpx.WriteError(w, http.StatusBadGateway, "stripe_error", stripeErr.Msg)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
