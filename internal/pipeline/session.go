// Package pipeline drives the cross-source correlation for one player's
// dashboard session: paginate match history, expand carnage reports,
// resolve linked streaming identities, pull video archives, correlate time
// windows, and assemble per-team presentation rows.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/stream"
	"github.com/PhilippCounter/DestinyWeb/internal/twitch"
)

// StatsAPI is the slice of the Bungie client the pipeline consumes.
type StatsAPI interface {
	GetActivityHistory(ctx context.Context, membershipType int, membershipID, characterID string, p bungie.HistoryParams) ([]bungie.ActivitySummary, error)
	GetPostGameReport(ctx context.Context, instanceID string) (*bungie.PostGameReport, error)
	GetMembershipDataByID(ctx context.Context, membershipType int, membershipID string) (*bungie.UserMembershipData, error)
}

// StreamAPI is the slice of the streaming platform client the pipeline
// consumes.
type StreamAPI interface {
	PullArchive(ctx context.Context, displayName string) (*twitch.Archive, error)
}

// Session holds the per-dashboard-session state: the accumulated match
// list and the four additive-only caches. Entries are never invalidated or
// evicted; the session's lifetime bounds the caches' lifetime.
//
// Concurrent first-time lookups for the same key are collapsed through a
// per-cache singleflight group, so a second caller awaits the first fetch
// instead of racing it.
type Session struct {
	stats   StatsAPI
	streams StreamAPI
	logger  *slog.Logger

	mu         sync.Mutex
	matches    []bungie.ActivitySummary
	reports    map[string]*bungie.PostGameReport
	identities map[string]string // "platform|playerId" -> twitch display name, "" = none
	archives   map[string]*twitch.Archive
	links      map[string]*stream.Link // "instanceId|platform|playerId", nil = correlated, no coverage

	reportFlight   singleflight.Group
	identityFlight singleflight.Group
	archiveFlight  singleflight.Group
	linkFlight     singleflight.Group
}

// NewSession creates an empty session over the given upstream clients.
func NewSession(stats StatsAPI, streams StreamAPI, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		stats:      stats,
		streams:    streams,
		logger:     logger,
		reports:    make(map[string]*bungie.PostGameReport),
		identities: make(map[string]string),
		archives:   make(map[string]*twitch.Archive),
		links:      make(map[string]*stream.Link),
	}
}

// identityKey is the composite cache key for a platform account.
func identityKey(membershipType int, membershipID string) string {
	return fmt.Sprintf("%d|%s", membershipType, membershipID)
}

// linkKey is the composite cache key for one (match, participant) pair.
func linkKey(instanceID string, membershipType int, membershipID string) string {
	return fmt.Sprintf("%s|%d|%s", instanceID, membershipType, membershipID)
}

// LoadPage fetches one page of the character's activity history and
// appends it to the session's accumulated match list. The list is
// append-only: never re-sorted and never deduplicated, so overlapping
// upstream pages may yield repeated instance ids.
//
// A missing identity (zero membership type or empty id) returns an empty
// page rather than an error.
func (s *Session) LoadPage(ctx context.Context, membershipType int, membershipID, characterID string, p bungie.HistoryParams) ([]bungie.ActivitySummary, error) {
	if p.Page < 0 {
		return nil, fmt.Errorf("page must be >= 0, got %d", p.Page)
	}
	if p.Count <= 0 {
		return nil, fmt.Errorf("count must be > 0, got %d", p.Count)
	}
	if membershipType == 0 || membershipID == "" {
		return []bungie.ActivitySummary{}, nil
	}

	page, err := s.stats.GetActivityHistory(ctx, membershipType, membershipID, characterID, p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.matches = append(s.matches, page...)
	s.mu.Unlock()

	return page, nil
}

// Matches returns a copy of the accumulated match list in load order.
func (s *Session) Matches() []bungie.ActivitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bungie.ActivitySummary, len(s.matches))
	copy(out, s.matches)
	return out
}

// Report returns the carnage report for a match instance, fetching it at
// most once per session. A cached report is returned without an upstream
// call; a fetch failure is propagated and nothing is cached, so the next
// caller retries.
func (s *Session) Report(ctx context.Context, instanceID string) (*bungie.PostGameReport, error) {
	s.mu.Lock()
	if r, ok := s.reports[instanceID]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	v, err, _ := s.reportFlight.Do(instanceID, func() (any, error) {
		report, err := s.stats.GetPostGameReport(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.reports[instanceID] = report
		s.mu.Unlock()
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*bungie.PostGameReport), nil
}

// LinkedStreamName resolves a platform account to its linked Twitch
// display name. An account without a linked stream resolves to "", and so
// does a failed lookup: resolver failures are swallowed, logged, and
// cached as "no stream" for the rest of the session.
func (s *Session) LinkedStreamName(ctx context.Context, membershipType int, membershipID string) string {
	key := identityKey(membershipType, membershipID)

	s.mu.Lock()
	if name, ok := s.identities[key]; ok {
		s.mu.Unlock()
		return name
	}
	s.mu.Unlock()

	v, _, _ := s.identityFlight.Do(key, func() (any, error) {
		name := ""
		data, err := s.stats.GetMembershipDataByID(ctx, membershipType, membershipID)
		if err != nil {
			s.logger.Debug("membership lookup failed", "key", key, "error", err)
		} else {
			name = data.BungieNetUser.TwitchDisplayName
		}
		s.mu.Lock()
		s.identities[key] = name
		s.mu.Unlock()
		return name, nil
	})
	return v.(string)
}

// Archive returns the video archive for a Twitch display name, fetched at
// most once per session. Catalog failures are swallowed and cached as an
// empty archive; an unknown account is an empty archive upstream already.
func (s *Session) Archive(ctx context.Context, displayName string) *twitch.Archive {
	s.mu.Lock()
	if a, ok := s.archives[displayName]; ok {
		s.mu.Unlock()
		return a
	}
	s.mu.Unlock()

	v, _, _ := s.archiveFlight.Do(displayName, func() (any, error) {
		archive, err := s.streams.PullArchive(ctx, displayName)
		if err != nil {
			s.logger.Debug("archive fetch failed", "display_name", displayName, "error", err)
			archive = &twitch.Archive{Videos: []twitch.Video{}}
		}
		s.mu.Lock()
		s.archives[displayName] = archive
		s.mu.Unlock()
		return archive, nil
	})
	return v.(*twitch.Archive)
}

// StreamLink correlates one participant of one match against their video
// archive. The result, including "no coverage", is computed at most once
// per (match, participant) pair and cached for the session.
func (s *Session) StreamLink(ctx context.Context, report *bungie.PostGameReport, entry bungie.ReportEntry) *stream.Link {
	info := entry.Player.DestinyUserInfo
	key := linkKey(report.ActivityDetails.InstanceID, info.MembershipType, info.MembershipID)

	s.mu.Lock()
	if link, ok := s.links[key]; ok {
		s.mu.Unlock()
		return link
	}
	s.mu.Unlock()

	v, _, _ := s.linkFlight.Do(key, func() (any, error) {
		var link *stream.Link
		if name := s.LinkedStreamName(ctx, info.MembershipType, info.MembershipID); name != "" {
			archive := s.Archive(ctx, name)
			link = stream.Correlate(name, archive.Videos, report.Period)
		}
		s.mu.Lock()
		s.links[key] = link
		s.mu.Unlock()
		return link, nil
	})
	return v.(*stream.Link)
}
