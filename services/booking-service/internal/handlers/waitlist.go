package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/waitlist"
)

type createWaitlistRequest struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=40"`
	Note      string `json:"note" validate:"max=500"`
}

func (h *Handler) CreateWaitlist(w http.ResponseWriter, r *http.Request) {
	var req createWaitlistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	e, err := h.waitlist.Create(r.Context(), principal(r), waitlist.CreateInput{
		ServiceID: req.ServiceID,
		Email:     req.Email,
		Phone:     req.Phone,
		Note:      req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.waitlist.List(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.WaitlistEntry{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"waitlist": list})
}

func (h *Handler) DeleteWaitlist(w http.ResponseWriter, r *http.Request) {
	if err := h.waitlist.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
