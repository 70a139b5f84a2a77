package handlers

import (
	"net/http"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/billing-service/internal/payments"
)

type checkoutRequest struct {
	BookingID  string `json:"bookingId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"omitempty,url"`
	CancelURL  string `json:"cancelUrl" validate:"omitempty,url"`
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.payments.CreateCheckout(r.Context(), p, payments.CheckoutInput{
		BookingID:  req.BookingID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Origin:     r.Header.Get("Origin"),
		Host:       r.Host,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) VerifySession(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	res, err := h.payments.VerifySession(r.Context(), p, sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
