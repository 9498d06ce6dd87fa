package timeline

import "time"

// DefaultFloor is the oldest instant a user can always zoom out to.
var DefaultFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Interval is a closed span of absolute time, used for the full-history range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bounds are the pan/zoom limits in data-range percent.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EffectiveBounds unions the data range with the floor date, now and the
// optional full-history interval, projected into data-range percent. It must
// be recomputed whenever it is needed since now keeps moving.
func EffectiveBounds(r TimeRange, floor, now time.Time, full *Interval) Bounds {
	oldest := r.Min
	newest := r.Max

	if !floor.IsZero() {
		oldest = min(oldest, floor.UnixMilli())
	}
	newest = max(newest, now.UnixMilli())
	if full != nil {
		if !full.Start.IsZero() {
			oldest = min(oldest, full.Start.UnixMilli())
		}
		if !full.End.IsZero() {
			newest = max(newest, full.End.UnixMilli())
		}
	}

	return Bounds{Min: r.Position(oldest), Max: r.Position(newest)}
}

// Width is the span of the bounds in data-range percent.
func (b Bounds) Width() float64 { return b.Max - b.Min }

// Mid is the bounds midpoint.
func (b Bounds) Mid() float64 { return (b.Min + b.Max) / 2 }

// MinZoom is the zoom at which the window exactly spans the bounds.
func (b Bounds) MinZoom() float64 {
	if b.Width() <= 0 {
		return 0
	}
	return 100 / b.Width()
}

// ClampCenter keeps a window of the given width inside the bounds. When the
// window is wider than the bounds the center snaps to the bounds midpoint.
func (b Bounds) ClampCenter(center, width float64) float64 {
	lo := b.Min + width/2
	hi := b.Max - width/2
	if lo > hi {
		return b.Mid()
	}
	return clamp(center, lo, hi)
}
