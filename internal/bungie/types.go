package bungie

import "time"

// StatValue is the Bungie historical-stats value wrapper. Every numeric
// metric (kills, deaths, standing, team, ...) arrives in this shape.
type StatValue struct {
	Basic struct {
		Value        float64 `json:"value"`
		DisplayValue string  `json:"displayValue"`
	} `json:"basic"`
}

// ActivityDetails identifies one played activity instance.
type ActivityDetails struct {
	ReferenceID          int64  `json:"referenceId"`
	DirectorActivityHash int64  `json:"directorActivityHash"`
	InstanceID           string `json:"instanceId"`
	Mode                 int    `json:"mode"`
}

// ActivitySummary is one row of a character's activity history: the match
// instance, when it started, and the requesting player's own metric values.
type ActivitySummary struct {
	Period          time.Time            `json:"period"`
	ActivityDetails ActivityDetails      `json:"activityDetails"`
	Values          map[string]StatValue `json:"values"`
}

type activityHistoryResponse struct {
	Activities []ActivitySummary `json:"activities"`
}

// UserInfoCard identifies a player account on one platform.
type UserInfoCard struct {
	MembershipType int    `json:"membershipType"`
	MembershipID   string `json:"membershipId"`
	DisplayName    string `json:"displayName"`
}

// ReportEntry is one participant in a post game carnage report, with the
// per-participant outcome values. values["team"] carries the team id
// (18/19 for the two sides, -1 for non-participants) and values["standing"]
// the win/loss standing (0 = victory).
type ReportEntry struct {
	Player struct {
		DestinyUserInfo UserInfoCard `json:"destinyUserInfo"`
	} `json:"player"`
	Values map[string]StatValue `json:"values"`
}

// TeamID returns the participant's team id, or TeamNone when absent.
func (e ReportEntry) TeamID() int {
	v, ok := e.Values["team"]
	if !ok {
		return TeamNone
	}
	return int(v.Basic.Value)
}

// Team ids as reported in carnage report entries.
const (
	TeamAlpha = 18
	TeamBravo = 19
	TeamNone  = -1 // spectator / non-participant sentinel
)

// PostGameReport is the full roster and outcome of one match instance.
type PostGameReport struct {
	Period          time.Time       `json:"period"`
	ActivityDetails ActivityDetails `json:"activityDetails"`
	Entries         []ReportEntry   `json:"entries"`
}

// Character is one of a profile's playable characters.
type Character struct {
	MembershipType int       `json:"membershipType"`
	MembershipID   string    `json:"membershipId"`
	CharacterID    string    `json:"characterId"`
	ClassHash      int64     `json:"classHash"`
	Light          int       `json:"light"`
	DateLastPlayed time.Time `json:"dateLastPlayed"`
	EmblemPath     string    `json:"emblemPath"`
}

// ProfileResponse carries the profile and character components of a
// Destiny profile lookup.
type ProfileResponse struct {
	Profile struct {
		Data struct {
			UserInfo     UserInfoCard `json:"userInfo"`
			CharacterIDs []string     `json:"characterIds"`
		} `json:"data"`
	} `json:"profile"`
	Characters struct {
		Data map[string]Character `json:"data"`
	} `json:"characters"`
}

// UserSearchDetail is one candidate from a global name prefix search.
type UserSearchDetail struct {
	BungieGlobalDisplayName     string         `json:"bungieGlobalDisplayName"`
	BungieGlobalDisplayNameCode int            `json:"bungieGlobalDisplayNameCode"`
	DestinyMemberships          []UserInfoCard `json:"destinyMemberships"`
}

// UserSearchResponse is a page of name prefix search results.
type UserSearchResponse struct {
	SearchResults []UserSearchDetail `json:"searchResults"`
	Page          int                `json:"page"`
	HasMore       bool               `json:"hasMore"`
}

// UserMembershipData links a platform account to its bungie.net user,
// including the optional Twitch display name used for stream correlation.
type UserMembershipData struct {
	DestinyMemberships []UserInfoCard `json:"destinyMemberships"`
	BungieNetUser      struct {
		MembershipID      string `json:"membershipId"`
		DisplayName       string `json:"displayName"`
		TwitchDisplayName string `json:"twitchDisplayName"`
	} `json:"bungieNetUser"`
}

// HistoricalStatsByPeriod groups stat values by aggregation window.
type HistoricalStatsByPeriod struct {
	AllTime map[string]StatValue `json:"allTime"`
}

// HistoricalStatsAccountResult is the account-wide aggregate stats result.
// Results are keyed by mode group, e.g. "allPvP".
type HistoricalStatsAccountResult struct {
	MergedAllCharacters struct {
		Results map[string]HistoricalStatsByPeriod `json:"results"`
	} `json:"mergedAllCharacters"`
}

// AllPvPStats returns the account's all-time PvP aggregate values, or nil
// when the account has none.
func (r *HistoricalStatsAccountResult) AllPvPStats() map[string]StatValue {
	if r == nil {
		return nil
	}
	pvp, ok := r.MergedAllCharacters.Results["allPvP"]
	if !ok {
		return nil
	}
	return pvp.AllTime
}

// manifestInfo is the manifest metadata lookup, trimmed to the per-language
// world component paths this service consumes.
type manifestInfo struct {
	JSONWorldComponentContentPaths map[string]map[string]string `json:"jsonWorldComponentContentPaths"`
}
