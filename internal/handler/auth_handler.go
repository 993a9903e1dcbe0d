package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-tours-api/internal/middleware"
	"go-tours-api/internal/model"
	"go-tours-api/internal/service"
	"go-tours-api/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.SignupRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	result, err := h.service.Signup(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	result, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

// ForgotPassword answers the same way whether or not the email is
// registered, so the endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ForgotPasswordRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "if that email is registered, a reset token has been sent",
	}, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	result, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.UpdatePasswordRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	result, err := h.service.UpdatePassword(r.Context(), principal.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}
