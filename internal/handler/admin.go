package handler

import (
	"net/http"

	"ggshop-rest-api/internal/catalog"
	"ggshop-rest-api/internal/repository"
	"ggshop-rest-api/pkg/apierror"
	"ggshop-rest-api/pkg/response"
)

// AdminHandler exposes operational endpoints: catalog reload and ledger
// statistics.
type AdminHandler struct {
	catalog  *catalog.Cache
	repo     repository.LedgerRepository
	adminKey string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cat *catalog.Cache, repo repository.LedgerRepository, adminKey string) *AdminHandler {
	return &AdminHandler{catalog: cat, repo: repo, adminKey: adminKey}
}

// authorized checks the X-Admin-Key header.
func (h *AdminHandler) authorized(r *http.Request) bool {
	return h.adminKey != "" && r.Header.Get("X-Admin-Key") == h.adminKey
}

// ReloadCatalog handles POST /api/v1/admin/catalog/reload
func (h *AdminHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	if err := h.catalog.Load(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("failed to reload catalog"))
		return
	}

	snap := h.catalog.Current()
	response.OK(w, map[string]interface{}{
		"outfits":       len(snap.Outfits),
		"general_items": len(snap.GeneralItems),
	})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to collect stats"))
		return
	}
	response.OK(w, stats)
}
