package timeline

import "math"

// ResolveOverlaps suppresses markers that would visually collide with a
// better-scored neighbour. It walks candidates best score first and keeps a
// candidate that collides with an accepted marker only when their scores are
// within ScoreProximity of each other. widthPx is the rendered track width;
// zero or less falls back to ReferenceWidth.
//
// The walk is greedy and order dependent. Ties are broken by ingestion order,
// so the same input always yields the same output.
func ResolveOverlaps(markers []Marker, zoom, widthPx float64, o OverlapOptions) []Marker {
	sorted := byScore(markers)
	limit := o.MaxMarkers
	if limit <= 0 {
		limit = len(sorted)
	}

	if zoom >= o.AlwaysShowZoom {
		if len(sorted) > limit {
			sorted = sorted[:limit]
		}
		return sorted
	}

	if widthPx <= 0 {
		widthPx = o.ReferenceWidth
	}

	accepted := make([]Marker, 0, min(len(sorted), limit))
	for _, cand := range sorted {
		if len(accepted) == limit {
			break
		}
		if !suppressed(cand, accepted, widthPx, o) {
			accepted = append(accepted, cand)
		}
	}
	return accepted
}

func suppressed(cand Marker, accepted []Marker, widthPx float64, o OverlapOptions) bool {
	for _, a := range accepted {
		if !Overlaps(cand, a, widthPx, o.OverlapRatio) {
			continue
		}
		if ScoreGap(cand.Relevance, a.Relevance) > o.ScoreProximity {
			return true
		}
	}
	return false
}

// Overlaps reports whether two markers drawn on a track widthPx wide are
// closer than their combined radii scaled by ratio.
func Overlaps(a, b Marker, widthPx, ratio float64) bool {
	dist := math.Abs(a.DisplayPosition-b.DisplayPosition) / 100 * widthPx
	radii := (a.Size + b.Size) / 2
	return dist < radii*ratio
}

// ScoreGap is the relative difference |a-b| / mean(a, b).
func ScoreGap(a, b float64) float64 {
	avg := (a + b) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(a-b) / avg
}
