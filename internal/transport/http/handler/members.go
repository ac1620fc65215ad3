package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatekeeper-api/internal/application/member"
	"github.com/gatekeeper-api/internal/pkg/validate"
	"github.com/gatekeeper-api/internal/transport/http/middleware"
)

// MemberHandler exposes join reporting and member administration.
type MemberHandler struct {
	svc member.Service
}

func NewMemberHandler(svc member.Service) *MemberHandler { return &MemberHandler{svc: svc} }

// Join is reported by the relay whenever a user enters a community.
func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req member.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Join(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Verify marks a member verified on the operator's authority.
func (h *MemberHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	communityID := chi.URLParam(r, "communityID")
	userID := chi.URLParam(r, "userID")
	if err := h.svc.ManualVerify(r.Context(), userID, communityID, claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "member verified"})
}

// Unverify strips a member's verified standing. The reason is mandatory.
func (h *MemberHandler) Unverify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	communityID := chi.URLParam(r, "communityID")
	userID := chi.URLParam(r, "userID")
	if err := h.svc.Unverify(r.Context(), userID, communityID, claims.UserID, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "member unverified"})
}

// Status reports a member's standing with a community's gate.
func (h *MemberHandler) Status(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityID")
	userID := chi.URLParam(r, "userID")
	st, err := h.svc.Status(r.Context(), userID, communityID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
