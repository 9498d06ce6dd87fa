package timeline

import "math"

// Rect is the rendered horizontal extent of the timeline track in pixels.
type Rect struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// Percent converts a pointer x into percent of the rect. ok is false when the
// rect is empty or the pointer lies outside it.
func (r Rect) Percent(x float64) (pct float64, ok bool) {
	if r.Width <= 0 || math.IsNaN(x) {
		return 0, false
	}
	off := x - r.Left
	if off < 0 || off > r.Width {
		return 0, false
	}
	return off / r.Width * 100, true
}

// Contains reports whether x lies within the rect.
func (r Rect) Contains(x float64) bool {
	_, ok := r.Percent(x)
	return ok
}

// Wheel applies a zoom step anchored at the pointer. The data position under
// the (center-blended) cursor stays under it after the zoom, then the center is
// clamped into the bounds. Pointer positions outside rect leave vp unchanged.
func Wheel(vp Viewport, b Bounds, x float64, rect Rect, deltaY float64, opts Options) (Viewport, bool) {
	cursorPct, ok := rect.Percent(x)
	if !ok || deltaY == 0 || math.IsNaN(deltaY) {
		return vp, false
	}

	w := clamp(opts.CenterWeight, 0, 1)
	anchorPct := cursorPct*(1-w) + 50*w
	anchor := vp.At(anchorPct)

	minZoom := b.MinZoom()
	maxZoom := opts.MaxZoom
	if maxZoom <= 0 {
		maxZoom = DefaultOptions().MaxZoom
	}
	zoom := vp.Zoom * math.Exp(deltaY*opts.WheelScale*opts.WheelSensitivity)
	zoom = clamp(zoom, minZoom, maxZoom)
	if zoom <= 0 || math.IsInf(zoom, 0) || math.IsNaN(zoom) {
		return vp, false
	}

	next := Viewport{Zoom: zoom}
	width := next.Width()
	next.Center = anchor + width*(0.5-anchorPct/100)
	next.Center = b.ClampCenter(next.Center, width)
	return next, true
}

// Drag tracks an in-progress pan gesture.
type Drag struct {
	active  bool
	lastX   float64
	outside bool // pointer left rect since the last applied move
	bounds Bounds
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool { return d.active }

// Begin starts a drag at x. The bounds are captured once since they cannot
// change mid-gesture. Presses outside rect are ignored.
func (d *Drag) Begin(x float64, rect Rect, b Bounds) bool {
	if !rect.Contains(x) {
		return false
	}
	d.active = true
	d.outside = false
	d.lastX = x
	d.bounds = b
	return true
}

// Move pans vp by the pointer travel since the previous move. Dragging right
// moves the view toward older data. Moves outside rect are ignored, and the
// first move back inside only re-anchors the gesture.
func (d *Drag) Move(vp Viewport, x float64, rect Rect) (Viewport, bool) {
	if !d.active {
		return vp, false
	}
	if !rect.Contains(x) {
		d.outside = true
		return vp, false
	}
	if d.outside {
		d.outside = false
		d.lastX = x
		return vp, false
	}
	delta := (x - d.lastX) / rect.Width * vp.Width()
	d.lastX = x

	next := vp
	next.Center = d.bounds.ClampCenter(vp.Center-delta, vp.Width())
	return next, true
}

// End finishes the gesture.
func (d *Drag) End() {
	d.active = false
}
