package stream

import (
	"time"

	"github.com/PhilippCounter/DestinyWeb/internal/twitch"
)

// Link is the correlation result for one (match, participant) pair: a deep
// link into the video that was live when the match started.
type Link struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Offset string `json:"offset"`
}

// DeepLink returns the playback URL positioned at the correlated offset.
func (l *Link) DeepLink() string {
	return l.URL + "?t=" + l.Offset
}

// FindLiveVideo returns the first video in listing order whose time window
// contains t, or nil when no video covers it.
//
// The window is inclusive on both ends: startTime <= t <= startTime +
// parsed duration. Videos are scanned in the order received from the
// platform and are never re-sorted; when windows overlap, the earliest
// listed video wins and later candidates are ignored. First match keeps
// the result deterministic for a given archive ordering.
func FindLiveVideo(videos []twitch.Video, t time.Time) *twitch.Video {
	for i := range videos {
		v := &videos[i]
		from := v.CreatedAt
		to := v.CreatedAt.Add(ParseDuration(v.Duration))
		if !t.Before(from) && !t.After(to) {
			return v
		}
	}
	return nil
}

// Correlate matches a match start time against a video archive. It returns
// a deep link into the covering video, or nil when the archive has no video
// live at that time. That is the common case, not an error.
func Correlate(displayName string, videos []twitch.Video, matchStart time.Time) *Link {
	v := FindLiveVideo(videos, matchStart)
	if v == nil {
		return nil
	}
	return &Link{
		Name:   displayName,
		URL:    v.URL,
		Offset: FormatOffset(matchStart.Sub(v.CreatedAt)),
	}
}
