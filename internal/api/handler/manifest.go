package handler

import (
	"encoding/json"
	"net/http"

	"github.com/PhilippCounter/DestinyWeb/internal/api/respond"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
)

// GetManifest returns the persisted manifest snapshot.
// @Summary Get manifest snapshot
// @Tags manifest
// @Produce json
// @Success 200 {object} manifest.Snapshot
// @Failure 404 {object} respond.ErrorResponse
// @Router /manifest [get]
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	cacheKey := "manifest"
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLManifest, true)
		return
	}

	snap, err := h.manifest.Load()
	if err != nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND",
			"No manifest snapshot written yet; refresh it first")
		return
	}

	body, err := json.Marshal(snap)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, body, cache.TTLManifest)
	respond.WriteJSON(w, body, etag, cache.TTLManifest, false)
}

// RefreshManifest downloads fresh manifest tables and persists them.
// Rejected outright unless the special-endpoint allow-flag is set.
// @Summary Refresh manifest snapshot
// @Tags manifest
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /manifest [put]
func (h *Handler) RefreshManifest(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.AllowSpecialEndpoints {
		respond.WriteError(w, http.StatusForbidden, "NOT_ALLOWED",
			"Administrative endpoints are disabled")
		return
	}

	snap, err := h.manifest.Refresh(r.Context(), h.stats)
	if err != nil {
		h.logger.Error("manifest refresh failed", "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Manifest refresh failed")
		return
	}

	// The snapshot changed; the cached GET response is now stale.
	h.cache.Delete("manifest")

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"activities": len(snap.ActivityDefinitions),
		"classes":    len(snap.ClassDefinitions),
	})
}
