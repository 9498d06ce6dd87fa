package timeline

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultRelevance  = 0.5
	titleMaxRunes     = 60
	descFallbackRunes = 150
)

// Record is a scored, timestamped item handed to the timeline by a search
// collaborator. Timestamp and Similarity are optional.
type Record struct {
	ID         string
	Timestamp  time.Time // zero value means absent
	Similarity *float64
	Summary    string
}

// Event is a Record projected onto the data range.
type Event struct {
	ID          string    `json:"id"`
	Index       int       `json:"index"` // position in the ingested record list, used as a tie-breaker
	Time        time.Time `json:"time"`
	TimestampMs int64     `json:"timestamp_ms"`
	Position    float64   `json:"position"` // 0-100 across the data range
	Relevance   float64   `json:"relevance"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// TimeRange is the span covered by the ingested events, in unix milliseconds.
type TimeRange struct {
	Min      int64 `json:"min"`
	Max      int64 `json:"max"`
	Duration int64 `json:"duration"` // floored at 1ms
}

// DeriveRange returns the min/max span of all timestamped records, or nil when
// none carry a timestamp.
func DeriveRange(records []Record) *TimeRange {
	var r *TimeRange
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			continue
		}
		ms := rec.Timestamp.UnixMilli()
		if r == nil {
			r = &TimeRange{Min: ms, Max: ms}
			continue
		}
		if ms < r.Min {
			r.Min = ms
		}
		if ms > r.Max {
			r.Max = ms
		}
	}
	if r == nil {
		return nil
	}
	r.Duration = r.Max - r.Min
	if r.Duration < 1 {
		r.Duration = 1
	}
	return r
}

// Position projects a unix-millisecond instant into data-range percent.
func (r TimeRange) Position(ms int64) float64 {
	return float64(ms-r.Min) / float64(r.Duration) * 100
}

// MillisAt is the inverse of Position.
func (r TimeRange) MillisAt(pos float64) float64 {
	return float64(r.Min) + pos/100*float64(r.Duration)
}

// TimeAt converts a data-range position into an instant.
func (r TimeRange) TimeAt(pos float64) time.Time {
	return time.UnixMilli(int64(r.MillisAt(pos)))
}

// Span returns the range as a time.Duration.
func (r TimeRange) Span() time.Duration {
	return time.Duration(r.Duration) * time.Millisecond
}

// Ingest converts records into events positioned on their own data range.
// Records without a timestamp are dropped.
func Ingest(records []Record) ([]Event, *TimeRange) {
	r := DeriveRange(records)
	if r == nil {
		return nil, nil
	}

	events := make([]Event, 0, len(records))
	for i, rec := range records {
		if rec.Timestamp.IsZero() {
			continue
		}
		ms := rec.Timestamp.UnixMilli()
		title, desc := splitSummary(rec.Summary)
		events = append(events, Event{
			ID:          rec.ID,
			Index:       i,
			Time:        rec.Timestamp,
			TimestampMs: ms,
			Position:    r.Position(ms),
			Relevance:   relevanceOf(rec.Similarity),
			Title:       title,
			Description: desc,
		})
	}
	return events, r
}

func relevanceOf(sim *float64) float64 {
	if sim == nil {
		return defaultRelevance
	}
	return clamp(*sim, 0, 1)
}

// splitSummary derives a title from the first line of the summary and a
// description from the rest.
func splitSummary(summary string) (string, string) {
	if strings.TrimSpace(summary) == "" {
		summary = "Snapshot"
	}
	lines := strings.Split(summary, "\n")
	title := truncateRunes(lines[0], titleMaxRunes)

	desc := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	if desc == "" {
		desc = strings.TrimSpace(firstRunes(summary, descFallbackRunes))
	}
	if desc == "" {
		desc = "No additional details"
	}
	return title, desc
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return firstRunes(s, n) + "..."
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
