package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-identity-api/internal/application/verification"
	"github.com/go-identity-api/internal/domain"
)

// PasswordResetHandler handles the forgotten-password flow.
type PasswordResetHandler struct {
	svc verification.Service
}

func NewPasswordResetHandler(svc verification.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

// Request accepts an email address and responds identically whether or not an
// account exists for it.
func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if that address has an account, a reset email is on its way"})
}

// Confirm redeems a reset link and installs the new password.
func (h *PasswordResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	tok := chi.URLParam(r, "token")
	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), uid, tok, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password has been reset"})
}
