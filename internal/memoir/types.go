package memoir

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lazypower/timescope/internal/timeline"
)

// Snapshot is one captured memory.
type Snapshot struct {
	MemoryID   string         `json:"memory_id,omitempty" yaml:"memory_id"`
	Timestamp  string         `json:"timestamp,omitempty" yaml:"timestamp"`
	Summary    string         `json:"summary,omitempty" yaml:"summary"`
	ImageURL   string         `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Similarity *float64       `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	Stats      map[string]any `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Time parses the snapshot timestamp. ok is false when it is missing or
// unparsable.
func (s Snapshot) Time() (time.Time, bool) {
	return ParseTime(s.Timestamp)
}

// Record converts the snapshot into timeline input. An unparsable timestamp
// becomes absent.
func (s Snapshot) Record() timeline.Record {
	ts, _ := s.Time()
	return timeline.Record{
		ID:         s.MemoryID,
		Timestamp:  ts,
		Similarity: s.Similarity,
		Summary:    s.Summary,
	}
}

// Records converts a batch of snapshots.
func Records(snaps []Snapshot) []timeline.Record {
	out := make([]timeline.Record, len(snaps))
	for i, s := range snaps {
		out[i] = s.Record()
	}
	return out
}

// Stats are the optional aggregate numbers attached to a response.
type Stats struct {
	TotalSnapshots int        `json:"total_snapshots,omitempty"`
	TotalTokens    int        `json:"total_tokens,omitempty"`
	TimeRange      *TimeRange `json:"time_range,omitempty"`
}

// TimeRange is the span reported in Stats.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Response is the body of both search and range queries.
type Response struct {
	Snapshots []Snapshot `json:"snapshots"`
	Stats     *Stats     `json:"stats,omitempty"`
}

// UserInfo is the /me body.
type UserInfo struct {
	TotalSnapshots int     `json:"total_snapshots"`
	OldestSnapshot *string `json:"oldest_snapshot"`
}

// Health is the /health body.
type Health struct {
	Status string `json:"status"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and zone-less ISO timestamps. Zone-less values
// are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

const (
	// historyLookback is how far back the full-history interval always reaches.
	historyLookback = 5 * 24 * time.Hour
	// historyFallback is used when the account info cannot be fetched.
	historyFallback = 7 * 24 * time.Hour
)

// FullHistory derives the broadest span worth zooming out to: from the oldest
// snapshot (or five days back, whichever is earlier) to now. It never fails;
// any error yields the last seven days.
func (c *Client) FullHistory(ctx context.Context, now time.Time) timeline.Interval {
	info, err := c.Me(ctx)
	if err != nil {
		log.Printf("[memoir] full history: %v (using last 7 days)", err)
		return FallbackHistory(now)
	}
	return HistoryFrom(info, now)
}

// HistoryFrom applies the full-history rule to already fetched account info.
func HistoryFrom(info *UserInfo, now time.Time) timeline.Interval {
	var oldest time.Time
	if info != nil && info.OldestSnapshot != nil {
		oldest, _ = ParseTime(*info.OldestSnapshot)
	}
	return HistorySince(oldest, now)
}

// HistorySince runs from the earlier of oldest and five days before now, up to
// now. A zero oldest is ignored.
func HistorySince(oldest, now time.Time) timeline.Interval {
	start := now.Add(-historyLookback)
	if !oldest.IsZero() && oldest.Before(start) {
		start = oldest
	}
	return timeline.Interval{Start: start, End: now}
}

// FallbackHistory is the interval used when nothing is known about the account.
func FallbackHistory(now time.Time) timeline.Interval {
	return timeline.Interval{Start: now.Add(-historyFallback), End: now}
}
