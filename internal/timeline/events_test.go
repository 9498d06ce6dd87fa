package timeline

import (
	"math"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func TestDeriveRangeEmpty(t *testing.T) {
	if r := DeriveRange(nil); r != nil {
		t.Errorf("DeriveRange(nil) = %+v, want nil", r)
	}

	noTimes := []Record{{ID: "a", Summary: "x"}, {ID: "b"}}
	if r := DeriveRange(noTimes); r != nil {
		t.Errorf("DeriveRange(no timestamps) = %+v, want nil", r)
	}
}

func TestDeriveRangeEqualTimestamps(t *testing.T) {
	records := []Record{
		{ID: "a", Timestamp: t0},
		{ID: "b", Timestamp: t0},
	}
	events, r := Ingest(records)
	if r == nil {
		t.Fatal("expected range, got nil")
	}
	if r.Duration != 1 {
		t.Errorf("Duration = %d, want 1", r.Duration)
	}
	for _, e := range events {
		if e.Position != 0 {
			t.Errorf("event %s position = %f, want 0", e.ID, e.Position)
		}
	}
}

func TestIngestDropsUntimed(t *testing.T) {
	records := []Record{
		{ID: "a", Timestamp: t0, Similarity: score(0.8)},
		{ID: "b"},
		{ID: "c", Timestamp: t0.Add(10 * time.Hour)},
	}
	events, r := Ingest(records)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if r.Min != t0.UnixMilli() || r.Max != t0.Add(10*time.Hour).UnixMilli() {
		t.Errorf("range = %+v, want [%d, %d]", r, t0.UnixMilli(), t0.Add(10*time.Hour).UnixMilli())
	}
	if events[0].Position != 0 || events[1].Position != 100 {
		t.Errorf("positions = %f, %f, want 0, 100", events[0].Position, events[1].Position)
	}
	if events[1].Index != 2 {
		t.Errorf("Index = %d, want original index 2", events[1].Index)
	}
	if events[0].Relevance != 0.8 {
		t.Errorf("relevance = %f, want 0.8", events[0].Relevance)
	}
	if events[1].Relevance != 0.5 {
		t.Errorf("missing relevance = %f, want default 0.5", events[1].Relevance)
	}
}

func TestRelevanceClamped(t *testing.T) {
	if got := relevanceOf(score(1.7)); got != 1 {
		t.Errorf("relevanceOf(1.7) = %f, want 1", got)
	}
	if got := relevanceOf(score(-0.2)); got != 0 {
		t.Errorf("relevanceOf(-0.2) = %f, want 0", got)
	}
}

func TestProjectionInvertible(t *testing.T) {
	r := TimeRange{Min: t0.UnixMilli(), Max: t0.Add(37 * 24 * time.Hour).UnixMilli()}
	r.Duration = r.Max - r.Min

	for _, off := range []time.Duration{0, time.Second, 90 * time.Minute, 13 * 24 * time.Hour, 37 * 24 * time.Hour} {
		ms := t0.Add(off).UnixMilli()
		back := r.MillisAt(r.Position(ms))
		if math.Abs(back-float64(ms)) > 1 {
			t.Errorf("offset %v: round trip = %f, want %d", off, back, ms)
		}
	}
}

func TestSplitSummary(t *testing.T) {
	tests := []struct {
		name      string
		summary   string
		wantTitle string
		wantDesc  string
	}{
		{"empty", "", "Snapshot", "Snapshot"},
		{"whitespace", "  \n ", "Snapshot", "Snapshot"},
		{"single line", "Deployed v2", "Deployed v2", "Deployed v2"},
		{"multi line", "Deployed v2\nRolled out to prod\nno issues", "Deployed v2", "Rolled out to prod\nno issues"},
		{"long title", strings.Repeat("a", 70), strings.Repeat("a", 60) + "...", strings.Repeat("a", 70)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, desc := splitSummary(tt.summary)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if desc != tt.wantDesc {
				t.Errorf("desc = %q, want %q", desc, tt.wantDesc)
			}
		})
	}
}

func TestTruncateRunesMultibyte(t *testing.T) {
	s := strings.Repeat("é", 61)
	got := truncateRunes(s, 60)
	if got != strings.Repeat("é", 60)+"..." {
		t.Errorf("truncateRunes = %q", got)
	}
}
