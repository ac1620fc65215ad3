package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatekeeper-api/internal/application/community"
	"github.com/gatekeeper-api/internal/domain"
	"github.com/gatekeeper-api/internal/pkg/validate"
	"github.com/gatekeeper-api/internal/transport/http/middleware"
)

// CommunityHandler exposes community configuration and lockdown control.
type CommunityHandler struct {
	svc community.Service
}

func NewCommunityHandler(svc community.Service) *CommunityHandler {
	return &CommunityHandler{svc: svc}
}

// Configure replaces a community's settings. Lockdown is reset to off.
func (h *CommunityHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CommunityID = chi.URLParam(r, "communityID")
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings, err := h.svc.Configure(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Get returns a community's current settings.
func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Get(r.Context(), chi.URLParam(r, "communityID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SetLockdown flips the community's lockdown flag.
func (h *CommunityHandler) SetLockdown(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings, err := h.svc.SetLockdown(r.Context(), chi.URLParam(r, "communityID"), claims.UserID, req.Enabled)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
