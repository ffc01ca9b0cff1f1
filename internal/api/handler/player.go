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

// searchCandidate is one result of a player name search, enriched with the
// candidate's characters when the profile lookup succeeds.
type searchCandidate struct {
	bungie.UserSearchDetail
	Characters map[string]bungie.Character `json:"characters,omitempty"`
}

// SearchPlayers searches accounts by global display name prefix.
// @Summary Search players
// @Description Searches accounts by global display name prefix and enriches each candidate with its characters.
// @Tags players
// @Produce json
// @Param name query string true "Display name prefix"
// @Param page query int false "Result page"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /players/search [get]
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_NAME", "name query parameter is required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	cacheKey := fmt.Sprintf("search:%s:%d", name, page)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLSearch, true)
		return
	}

	result, err := h.stats.SearchByGlobalNamePrefix(r.Context(), name, page)
	if err != nil {
		h.logger.Error("player search failed", "name", name, "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Player search failed")
		return
	}

	candidates := make([]searchCandidate, 0, len(result.SearchResults))
	for _, detail := range result.SearchResults {
		candidate := searchCandidate{UserSearchDetail: detail}
		if len(detail.DestinyMemberships) > 0 {
			m := detail.DestinyMemberships[0]
			profile, err := h.stats.GetProfile(r.Context(), m.MembershipType, m.MembershipID)
			if err != nil {
				h.logger.Debug("candidate profile lookup failed", "membership_id", m.MembershipID, "error", err)
			} else {
				candidate.Characters = profile.Characters.Data
			}
		}
		candidates = append(candidates, candidate)
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":   name,
		"page":    page,
		"hasMore": result.HasMore,
		"results": candidates,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, body, cache.TTLSearch)
	respond.WriteJSON(w, body, etag, cache.TTLSearch, false)
}

// GetPlayer returns a player dashboard summary: profile, characters, and
// each character's first page of recent PvP matches.
// @Summary Get player profile
// @Tags players
// @Produce json
// @Param membershipType path int true "Platform membership type"
// @Param membershipId path string true "Platform membership id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{membershipType}/{membershipId} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	membershipType, err := strconv.Atoi(chi.URLParam(r, "membershipType"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "membershipType must be an integer")
		return
	}
	membershipID := chi.URLParam(r, "membershipId")

	cacheKey := fmt.Sprintf("player:%d:%s", membershipType, membershipID)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLProfile, true)
		return
	}

	profile, err := h.stats.GetProfile(r.Context(), membershipType, membershipID)
	if err != nil {
		h.logger.Error("profile lookup failed", "membership_id", membershipID, "error", err)
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Player not found")
		return
	}

	lastMatches := make(map[string][]bungie.ActivitySummary, len(profile.Characters.Data))
	characterStats := make(map[string]map[string]json.RawMessage, len(profile.Characters.Data))
	for characterID, character := range profile.Characters.Data {
		page, err := h.stats.GetActivityHistory(r.Context(), character.MembershipType, character.MembershipID, characterID,
			bungie.HistoryParams{Page: 0, Count: 10, Mode: config.ModeAllPvP})
		if err != nil {
			h.logger.Debug("recent matches lookup failed", "character_id", characterID, "error", err)
			continue
		}
		lastMatches[characterID] = page

		stats, err := h.stats.GetHistoricalStats(r.Context(), character.MembershipType, character.MembershipID, characterID)
		if err != nil {
			h.logger.Debug("character stats lookup failed", "character_id", characterID, "error", err)
			continue
		}
		characterStats[characterID] = stats
	}

	body, err := json.Marshal(map[string]interface{}{
		"profile":        profile.Profile.Data,
		"characters":     profile.Characters.Data,
		"lastMatches":    lastMatches,
		"characterStats": characterStats,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, body, cache.TTLProfile)
	respond.WriteJSON(w, body, etag, cache.TTLProfile, false)
}
