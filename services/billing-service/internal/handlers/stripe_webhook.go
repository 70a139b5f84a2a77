package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/parrylicious/salonbook/libs/httpx"
)

// Stripe's own guidance for webhook payloads.
const maxWebhookBytes = 64 << 10

// StripeWebhook is mounted outside the JWT group. The signature header is
// checked by the payment service over the exact bytes read here, so the
// body must not pass through any JSON decoding first.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("webhook payload exceeds %d bytes", maxErr.Limit))
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "failed to read webhook payload")
		return
	}

	res, err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.logger.Info("stripe webhook handled",
		"event", res.Event, "booking_id", res.BookingID, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, res)
}
