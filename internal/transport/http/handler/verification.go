package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatekeeper-api/internal/application/verification"
	"github.com/gatekeeper-api/internal/pkg/validate"
)

// VerificationHandler exposes the keypad verification flow.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// Start begins a verification session and e-mails the code.
func (h *VerificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req verification.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Start(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// PressKey applies one keypad press to the caller's pending session.
func (h *VerificationHandler) PressKey(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	key := chi.URLParam(r, "key")
	state, err := h.svc.PressKey(r.Context(), userID, key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Submit checks the typed input against the code.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	res, err := h.svc.Submit(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
