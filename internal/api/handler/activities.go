package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PhilippCounter/DestinyWeb/internal/api/respond"
	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// GetCharacterActivities serves one page of the incrementally loaded
// activity feed: match history expanded through carnage reports, linked
// stream identities, archive correlation and team partitioning.
// @Summary Get character activity feed page
// @Description Returns one page of assembled activity rows with per-team rosters and correlated stream deep links.
// @Tags activities
// @Produce json
// @Param membershipType path int true "Platform membership type"
// @Param membershipId path string true "Platform membership id"
// @Param characterId path string true "Character id"
// @Param page query int false "Page index (default 0)"
// @Param count query int false "Page size (default 10, max 50)"
// @Param mode query int false "Activity mode filter (default 5, all PvP)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /players/{membershipType}/{membershipId}/characters/{characterId}/activities [get]
func (h *Handler) GetCharacterActivities(w http.ResponseWriter, r *http.Request) {
	membershipType, err := strconv.Atoi(chi.URLParam(r, "membershipType"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "membershipType must be an integer")
		return
	}
	membershipID := chi.URLParam(r, "membershipId")
	characterID := chi.URLParam(r, "characterId")

	page, err := queryInt(r, "page", 0)
	if err != nil || page < 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PAGE", "page must be a non-negative integer")
		return
	}
	count, err := queryInt(r, "count", defaultPageSize)
	if err != nil || count <= 0 || count > maxPageSize {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_COUNT",
			fmt.Sprintf("count must be between 1 and %d", maxPageSize))
		return
	}
	mode, err := queryInt(r, "mode", config.ModeAllPvP)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_MODE", "mode must be an integer")
		return
	}

	// The short-lived response cache absorbs render-loop re-requests of the
	// same page, which would otherwise append duplicates to the session's
	// accumulated match list.
	cacheKey := fmt.Sprintf("feed:%d:%s:%s:%d:%d:%d", membershipType, membershipID, characterID, page, count, mode)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLFeed, true)
		return
	}

	sessionKey := fmt.Sprintf("%d/%s/%s", membershipType, membershipID, characterID)
	session := h.sessions.Session(sessionKey)

	matches, err := session.LoadPage(r.Context(), membershipType, membershipID, characterID,
		bungie.HistoryParams{Page: page, Count: count, Mode: mode})
	if err != nil {
		h.logger.Error("activity history fetch failed", "session", sessionKey, "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Activity history fetch failed")
		return
	}

	// The snapshot is optional: rows render without names when no manifest
	// has been written yet.
	snap, err := h.manifest.Load()
	if err != nil {
		h.logger.Debug("manifest snapshot unavailable", "error", err)
	}

	rows := session.AssembleRows(r.Context(), matches, snap)

	body, err := json.Marshal(map[string]interface{}{
		"page":        page,
		"count":       count,
		"mode":        mode,
		"rows":        rows,
		"accumulated": len(session.Matches()),
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, body, cache.TTLFeed)
	respond.WriteJSON(w, body, etag, cache.TTLFeed, false)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
