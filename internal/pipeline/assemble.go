package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/stream"
)

// TeamMember is one roster entry in a presentation row, carrying the
// correlated stream link when one was found.
type TeamMember struct {
	DisplayName string       `json:"displayName"`
	Stream      *stream.Link `json:"stream,omitempty"`
}

// ActivityRow is one fully assembled feed row: the requesting player's own
// values plus the match roster split into teams with stream links merged in.
type ActivityRow struct {
	InstanceID   string                      `json:"instanceId"`
	Period       time.Time                   `json:"period"`
	ActivityName string                      `json:"activityName,omitempty"`
	ModeName     string                      `json:"modeName,omitempty"`
	ImagePath    string                      `json:"imagePath,omitempty"`
	Values       map[string]bungie.StatValue `json:"values"`
	Teams        map[string][]TeamMember     `json:"teams"`
	// Pending marks a row whose carnage report could not be loaded; the
	// rest of the row still renders.
	Pending bool `json:"pending,omitempty"`
}

// PartitionTeams groups a roster into team buckets. The two expected sides
// are pre-seeded so both appear even when empty; the non-participant
// sentinel team is excluded entirely. Entries keep roster order. linkFor
// may be nil when no correlation is wanted.
func PartitionTeams(roster []bungie.ReportEntry, linkFor func(bungie.ReportEntry) *stream.Link) map[string][]TeamMember {
	teams := map[string][]TeamMember{
		strconv.Itoa(bungie.TeamAlpha): {},
		strconv.Itoa(bungie.TeamBravo): {},
	}

	for _, entry := range roster {
		teamID := entry.TeamID()
		if teamID == bungie.TeamNone {
			continue
		}
		member := TeamMember{DisplayName: entry.Player.DestinyUserInfo.DisplayName}
		if linkFor != nil {
			member.Stream = linkFor(entry)
		}
		key := strconv.Itoa(teamID)
		teams[key] = append(teams[key], member)
	}

	return teams
}

// AssembleRows expands a slice of match summaries into presentation rows:
// carnage report, identity resolution, archive correlation and team
// partitioning for each match, in list order. A failed report fetch yields
// a pending row instead of failing the page. Manifest names are merged in
// when a snapshot is available.
func (s *Session) AssembleRows(ctx context.Context, matches []bungie.ActivitySummary, snap *manifest.Snapshot) []ActivityRow {
	rows := make([]ActivityRow, 0, len(matches))

	for _, match := range matches {
		row := ActivityRow{
			InstanceID: match.ActivityDetails.InstanceID,
			Period:     match.Period,
			Values:     match.Values,
		}
		if snap != nil {
			if def, ok := snap.Activity(match.ActivityDetails.ReferenceID); ok {
				row.ActivityName = def.DisplayProperties.Name
				row.ImagePath = def.PGCRImage
			}
			if def, ok := snap.Activity(match.ActivityDetails.DirectorActivityHash); ok {
				row.ModeName = def.DisplayProperties.Name
			}
		}

		report, err := s.Report(ctx, match.ActivityDetails.InstanceID)
		if err != nil {
			s.logger.Warn("carnage report unavailable",
				"instance_id", match.ActivityDetails.InstanceID, "error", err)
			row.Pending = true
			row.Teams = PartitionTeams(nil, nil)
			rows = append(rows, row)
			continue
		}

		row.Teams = PartitionTeams(report.Entries, func(entry bungie.ReportEntry) *stream.Link {
			return s.StreamLink(ctx, report, entry)
		})
		rows = append(rows, row)
	}

	return rows
}
