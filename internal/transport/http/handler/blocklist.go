package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatekeeper-api/internal/application/blocklist"
)

// BlocklistHandler exposes the owner-only e-mail domain blocklist.
type BlocklistHandler struct {
	svc blocklist.Service
}

func NewBlocklistHandler(svc blocklist.Service) *BlocklistHandler {
	return &BlocklistHandler{svc: svc}
}

func (h *BlocklistHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"domains": domains})
}

func (h *BlocklistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	added, err := h.svc.Add(r.Context(), req.Domain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "blocked " + added})
}

func (h *BlocklistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Remove(r.Context(), chi.URLParam(r, "domain")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "domain unblocked"})
}
