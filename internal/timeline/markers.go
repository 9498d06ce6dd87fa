package timeline

import (
	"math"
	"sort"
)

// Marker is a visible event sized for rendering.
type Marker struct {
	Event
	DisplayPosition float64 `json:"display_position"` // window-relative percent
	Normalized      float64 `json:"normalized"`       // relevance normalized across visible events
	Size            float64 `json:"size"`             // px
	Opacity         float64 `json:"opacity"`
}

// VisibleEvents returns the events inside the window with their display
// positions filled in, in input order.
func VisibleEvents(events []Event, vp Viewport) []Marker {
	var out []Marker
	for _, e := range events {
		if !vp.Contains(e.Position) {
			continue
		}
		out = append(out, Marker{Event: e, DisplayPosition: vp.Display(e.Position)})
	}
	return out
}

// BaseSize interpolates the marker size between MaxSize (window at or below
// MinWindowHours) and MinSize (at or above MaxWindowHours) on a log-hours scale.
func BaseSize(windowHours float64, o SizingOptions) float64 {
	lo := math.Log(o.MinWindowHours)
	hi := math.Log(o.MaxWindowHours)
	if !(hi > lo) || windowHours <= 0 {
		return o.MaxSize
	}
	t := clamp((hi-math.Log(windowHours))/(hi-lo), 0, 1)
	return o.MinSize + t*(o.MaxSize-o.MinSize)
}

// SizeMarkers fills Normalized, Size and Opacity. Scores are normalized
// against the min/max of the given markers only.
func SizeMarkers(markers []Marker, windowHours float64, o SizingOptions) []Marker {
	if len(markers) == 0 {
		return markers
	}
	lo, hi := markers[0].Relevance, markers[0].Relevance
	for _, m := range markers[1:] {
		lo = min(lo, m.Relevance)
		hi = max(hi, m.Relevance)
	}

	base := BaseSize(windowHours, o)
	out := make([]Marker, len(markers))
	for i, m := range markers {
		n := o.NeutralScore
		if hi > lo {
			n = (m.Relevance - lo) / (hi - lo)
		}
		m.Normalized = n
		m.Size = base + math.Pow(n, o.SizeExponent)*o.MaxSizeBoost
		m.Opacity = o.OpacityMin + math.Pow(n, o.OpacityExp)*(o.OpacityMax-o.OpacityMin)
		out[i] = m
	}
	return out
}

// byScore orders markers best relevance first, breaking ties on ingestion order.
func byScore(markers []Marker) []Marker {
	sorted := make([]Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Relevance != sorted[j].Relevance {
			return sorted[i].Relevance > sorted[j].Relevance
		}
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}

// Nearest finds the marker whose display position is closest to pct. It is
// only reported when within threshold display percent.
func Nearest(markers []Marker, pct, threshold float64) (Marker, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range markers {
		d := math.Abs(m.DisplayPosition - pct)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist >= threshold {
		return Marker{}, false
	}
	return markers[best], true
}
