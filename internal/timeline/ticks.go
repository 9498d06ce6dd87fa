package timeline

import (
	"fmt"
	"math"
	"time"
)

// TickKind distinguishes major and minor tick marks.
type TickKind string

const (
	TickMajor TickKind = "major"
	TickMinor TickKind = "minor"
)

// Tick is a tick mark at a window-relative display position.
type Tick struct {
	Position float64   `json:"position"`
	Kind     TickKind  `json:"kind"`
	Time     time.Time `json:"time"`
}

// Label is the text drawn under a major tick.
type Label struct {
	Position float64 `json:"position"`
	Text     string  `json:"text"`
}

const (
	day  = 24 * time.Hour
	week = 7 * day

	// maxLabelledMajors is the major tick count above which only every other
	// major tick gets a label.
	maxLabelledMajors = 8
)

// tickSteps maps a window duration ceiling to its tick intervals.
var tickSteps = []struct {
	below        time.Duration
	major, minor time.Duration
}{
	{2 * time.Hour, 15 * time.Minute, 5 * time.Minute},
	{12 * time.Hour, time.Hour, 15 * time.Minute},
	{3 * day, 6 * time.Hour, time.Hour},
	{14 * day, day, 6 * time.Hour},
	{60 * day, week, day},
	{365 * day, 30 * day, week},
}

// Intervals picks the major/minor tick spacing for a window of windowMs milliseconds.
func Intervals(windowMs float64) (major, minor time.Duration) {
	for _, s := range tickSteps {
		if windowMs < float64(s.below.Milliseconds()) {
			return s.major, s.minor
		}
	}
	return 365 * day, 30 * day
}

// windowMillis returns the visible window as absolute unix milliseconds.
func windowMillis(r TimeRange, vp Viewport) (start, end float64) {
	return r.MillisAt(vp.Start()), r.MillisAt(vp.End())
}

// Ticks generates major then minor tick marks for the visible window. Minor
// ticks that coincide with a major interval boundary are omitted.
func Ticks(r TimeRange, vp Viewport) []Tick {
	startMs, endMs := windowMillis(r, vp)
	if !(endMs > startMs) {
		return nil
	}
	major, minor := Intervals(endMs - startMs)
	majorMs := major.Milliseconds()
	minorMs := minor.Milliseconds()

	var ticks []Tick
	ticks = appendTicks(ticks, r, vp, startMs, endMs, majorMs, TickMajor, 0)
	ticks = appendTicks(ticks, r, vp, startMs, endMs, minorMs, TickMinor, majorMs)
	return ticks
}

func appendTicks(ticks []Tick, r TimeRange, vp Viewport, startMs, endMs float64, stepMs int64, kind TickKind, skipMultipleOf int64) []Tick {
	start, end := vp.Start(), vp.End()
	for t := int64(math.Floor(startMs/float64(stepMs))) * stepMs; float64(t) <= endMs; t += stepMs {
		if skipMultipleOf > 0 && t%skipMultipleOf == 0 {
			continue
		}
		pos := r.Position(t)
		if pos < start || pos > end {
			continue
		}
		ticks = append(ticks, Tick{
			Position: vp.Display(pos),
			Kind:     kind,
			Time:     time.UnixMilli(t),
		})
	}
	return ticks
}

// Labels derives label text for the major ticks. When more than eight major
// ticks are in view only every other one is labelled.
func Labels(ticks []Tick, r TimeRange, vp Viewport, loc *time.Location) []Label {
	if loc == nil {
		loc = time.Local
	}
	startMs, endMs := windowMillis(r, vp)
	layout := labelLayout(time.Duration(endMs-startMs) * time.Millisecond)

	var majors []Tick
	for _, t := range ticks {
		if t.Kind == TickMajor {
			majors = append(majors, t)
		}
	}

	stride := 1
	if len(majors) > maxLabelledMajors {
		stride = 2
	}
	labels := make([]Label, 0, len(majors)/stride+1)
	for i := 0; i < len(majors); i += stride {
		labels = append(labels, Label{
			Position: majors[i].Position,
			Text:     majors[i].Time.In(loc).Format(layout),
		})
	}
	return labels
}

func labelLayout(window time.Duration) string {
	switch {
	case window < 12*time.Hour:
		return "3:04 PM"
	case window < 3*day:
		return "Jan 2 3PM"
	case window < 60*day:
		return "Jan 2"
	case window < 365*day:
		return "Jan 2006"
	default:
		return "2006"
	}
}

// TimeframeLabel describes the visible window length, or "No data" without a range.
func TimeframeLabel(r *TimeRange, vp Viewport) string {
	if r == nil {
		return "No data"
	}
	visibleMs := float64(r.Duration) * vp.Width() / 100
	days := visibleMs / float64(day.Milliseconds())

	switch {
	case days >= 365:
		return fmt.Sprintf("%.1f years", days/365)
	case days >= 30:
		return fmt.Sprintf("%.1f months", days/30)
	case days >= 1:
		return fmt.Sprintf("%.1f days", days)
	case days >= 1.0/24:
		return fmt.Sprintf("%.1f hours", days*24)
	default:
		return fmt.Sprintf("%.0f minutes", days*24*60)
	}
}
