package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/service"
	"ggshop-rest-api/pkg/apierror"
	"ggshop-rest-api/pkg/response"
	"ggshop-rest-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// ShopHandler exposes the shop's command surface over HTTP. These are
// thin adapters: parsing and status mapping only, all behavior lives in
// the service.
type ShopHandler struct {
	shop *service.Shop
}

// NewShopHandler creates a new shop handler.
func NewShopHandler(shop *service.Shop) *ShopHandler {
	return &ShopHandler{shop: shop}
}

// StartSession handles POST /api/v1/sessions
func (h *ShopHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		LicenseID string `json:"license_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.LicenseID == "" {
		response.Error(w, apierror.BadRequest("license_id is required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uid.New()
	}

	if err := h.shop.HandleSessionStart(r.Context(), req.SessionID, req.LicenseID); err != nil {
		response.Error(w, apierror.InternalError("failed to start session"))
		return
	}

	response.Created(w, map[string]interface{}{
		"session_id": req.SessionID,
	})
}

// EndSession handles DELETE /api/v1/sessions/{session_id}
func (h *ShopHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if err := h.shop.HandleSessionEnd(r.Context(), sessionID); err != nil {
		response.Error(w, apierror.InternalError("failed to end session"))
		return
	}
	response.OK(w, map[string]interface{}{"session_id": sessionID, "status": "ended"})
}

// Buy handles POST /api/v1/sessions/{session_id}/buy
func (h *ShopHandler) Buy(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req struct {
		ItemID             int64  `json:"item_id"`
		Kind               string `json:"kind"`
		AllowCommerceCheck bool   `json:"allow_commerce_check"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	user, ok := h.shop.User(sessionID)
	if !ok {
		// Session already gone; not an error.
		response.OK(w, map[string]interface{}{"status": "no_session"})
		return
	}

	// An unknown kind string still reaches the engine, which maps it to
	// the unknown-item outcome without touching the ledger.
	kind, known := model.ParseItemKind(req.Kind)
	if !known {
		kind = model.ItemKind(-1)
	}

	result, err := h.shop.Buy(r.Context(), user.ID, req.ItemID, kind, sessionID, req.AllowCommerceCheck)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.OK(w, map[string]interface{}{"status": "no_session"})
			return
		}
		response.Error(w, apierror.InternalError("something went wrong with the purchase"))
		return
	}

	response.OK(w, map[string]interface{}{
		"result":  string(result),
		"message": result.Message(),
	})
}

// ClaimFree handles POST /api/v1/sessions/{session_id}/claim
func (h *ShopHandler) ClaimFree(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	granted, err := h.shop.ClaimFree(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.OK(w, map[string]interface{}{"status": "no_session"})
			return
		}
		response.Error(w, apierror.InternalError("something went wrong updating outfits"))
		return
	}

	message := "No new free outfit(s)."
	if granted {
		message = "You've claimed free outfit(s)."
	}
	response.OK(w, map[string]interface{}{
		"new_outfits": granted,
		"message":     message,
	})
}

// Equip handles POST /api/v1/sessions/{session_id}/equip
func (h *ShopHandler) Equip(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		response.Error(w, apierror.BadRequest("index is required"))
		return
	}

	if err := h.shop.EquipOutfit(r.Context(), sessionID, *req.Index); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.OK(w, map[string]interface{}{"status": "no_session"})
			return
		}
		response.Error(w, apierror.InternalError("something went wrong equipping an outfit"))
		return
	}
	response.OK(w, map[string]interface{}{"equipped": *req.Index})
}

// ListOutfits handles GET /api/v1/sessions/{session_id}/outfits
func (h *ShopHandler) ListOutfits(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	listing, err := h.shop.ListOutfits(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.OK(w, map[string]interface{}{"status": "no_session"})
			return
		}
		response.Error(w, apierror.InternalError("something went wrong listing outfits"))
		return
	}

	payload := map[string]interface{}{"outfits": listing}
	if record, ok, err := h.shop.ActiveOutfit(r.Context(), sessionID); err == nil && ok {
		payload["active_outfit_record_id"] = record.ID
	}
	response.OK(w, payload)
}

// Activate handles POST /api/v1/sessions/{session_id}/activate
func (h *ShopHandler) Activate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if err := h.shop.Activate(r.Context(), sessionID); err != nil {
		response.Error(w, apierror.InternalError("something went wrong activating items"))
		return
	}
	response.OK(w, map[string]interface{}{"status": "activated"})
}
