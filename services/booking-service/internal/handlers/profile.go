package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/booking-service/internal/avatars"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/profiles"
)

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=40"`
	Address  string `json:"address" validate:"max=200"`
}

type setRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=customer staff admin"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetMine(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := h.profiles.UpdateMine(r.Context(), principal(r), profiles.UpdateInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// UploadAvatar accepts a multipart "avatar" file or the raw image as body.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := readAvatar(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := h.profiles.UploadAvatar(r.Context(), principal(r), data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func readAvatar(r *http.Request) ([]byte, error) {
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("avatar")
		if err != nil {
			return nil, errors.New("multipart field avatar is required")
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(io.LimitReader(src, avatars.MaxBytes+1))
	if err != nil {
		return nil, errors.New("could not read avatar")
	}
	if len(data) > avatars.MaxBytes {
		return nil, avatars.ErrTooLarge
	}
	return data, nil
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := h.profiles.ListUsers(r.Context(), principal(r), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []model.UserRole{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	u, err := h.profiles.SetRoleByEmail(r.Context(), principal(r), req.Email, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
