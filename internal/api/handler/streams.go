package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PhilippCounter/DestinyWeb/internal/api/respond"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
)

// GetStreamArchive returns a streaming account's video archive. Unknown
// accounts yield an empty archive, not an error.
// @Summary Get stream archive
// @Tags streams
// @Produce json
// @Param accountName path string true "Streaming account display name"
// @Success 200 {object} twitch.Archive
// @Failure 502 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /streams/{accountName} [get]
func (h *Handler) GetStreamArchive(w http.ResponseWriter, r *http.Request) {
	accountName := chi.URLParam(r, "accountName")

	if !h.streams.IsConfigured() {
		respond.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED",
			"Streaming platform credentials are not configured")
		return
	}

	cacheKey := "archive:" + accountName
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLArchive, true)
		return
	}

	archive, err := h.streams.PullArchive(r.Context(), accountName)
	if err != nil {
		h.logger.Error("archive fetch failed", "account", accountName, "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Archive fetch failed")
		return
	}

	body, err := json.Marshal(archive)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, body, cache.TTLArchive)
	respond.WriteJSON(w, body, etag, cache.TTLArchive, false)
}
