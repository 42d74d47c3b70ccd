package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/envios/internal/inventory"
)

type InventoryHandler struct {
	svc    *inventory.Service
	logger *slog.Logger
}

func NewInventoryHandler(svc *inventory.Service, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, logger: logger}
}

// List serves GET /api/inventory?q=&page=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// Refresh serves POST /api/inventory/refresh and bypasses freshness.
func (h *InventoryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *InventoryHandler) serve(w http.ResponseWriter, r *http.Request, refresh bool) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	result, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), page, refresh)
	if err != nil {
		writeUpstreamError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
