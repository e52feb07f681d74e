package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-identity-api/internal/application/verification"
	"github.com/go-identity-api/internal/transport/http/middleware"
)

// EmailConfirmHandler handles the email confirmation flow.
type EmailConfirmHandler struct {
	svc verification.Service
}

func NewEmailConfirmHandler(svc verification.Service) *EmailConfirmHandler {
	return &EmailConfirmHandler{svc: svc}
}

// Request mails a fresh activation link to the authenticated caller.
func (h *EmailConfirmHandler) Request(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.RequestEmailConfirmation(r.Context(), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "confirmation email sent"})
}

// Confirm redeems an activation link. Public: the link itself is the proof
// of mailbox control.
func (h *EmailConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	tok := chi.URLParam(r, "token")
	if err := h.svc.ConfirmEmail(r.Context(), uid, tok); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email confirmed"})
}
