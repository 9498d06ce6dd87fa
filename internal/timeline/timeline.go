// Package timeline is the viewport engine behind the memory timeline: it maps
// scored, irregularly timed events onto a zoomable 0-100 axis, derives tick
// marks and labels for any zoom level, sizes markers by relevance and hides
// markers that would collide with better-scored neighbours.
//
// All derived values are recomputed from the Timeline state on every call.
// The interaction handlers (Wheel, DragStart, DragMove, DragEnd) are the only
// mutators. A Timeline is not safe for concurrent use.
package timeline

import (
	"time"
)

// Timeline owns the state for one loaded event set.
type Timeline struct {
	opts   Options
	window StartingWindow
	now    func() time.Time
	loc    *time.Location

	events   []Event
	rng      *TimeRange
	viewport Viewport
	history  *Interval
	drag     Drag
}

// New creates an empty timeline.
func New(opts Options) *Timeline {
	return &Timeline{
		opts:     opts,
		window:   WindowAuto,
		now:      time.Now,
		loc:      time.Local,
		viewport: Viewport{Zoom: 1, Center: 50},
	}
}

// SetClock replaces the source of "now" used for the effective bounds.
func (t *Timeline) SetClock(now func() time.Time) { t.now = now }

// SetLocation sets the zone tick labels are rendered in.
func (t *Timeline) SetLocation(loc *time.Location) { t.loc = loc }

// SetOptions swaps the tunables without touching the viewport.
func (t *Timeline) SetOptions(opts Options) { t.opts = opts }

// Options returns the current tunables.
func (t *Timeline) Options() Options { return t.opts }

// Load replaces the event set and resets the viewport from the starting window.
func (t *Timeline) Load(records []Record) {
	t.events, t.rng = Ingest(records)
	t.drag.End()
	t.reset()
}

// SetStartingWindow changes the starting window and resets the viewport.
func (t *Timeline) SetStartingWindow(w StartingWindow) {
	t.window = w
	t.reset()
}

// StartingWindow returns the current starting window setting.
func (t *Timeline) StartingWindow() StartingWindow { return t.window }

func (t *Timeline) reset() {
	if t.rng == nil {
		t.viewport = Viewport{Zoom: 1, Center: 50}
		return
	}
	t.viewport = InitialViewport(*t.rng, t.window)
}

// SetFullHistory updates the broadest span reachable by zooming out. A nil
// interval clears it.
func (t *Timeline) SetFullHistory(iv *Interval) {
	if iv == nil {
		t.history = nil
		return
	}
	cp := *iv
	t.history = &cp
}

// FullHistory returns the current full-history interval, if any.
func (t *Timeline) FullHistory() *Interval { return t.history }

// Range returns the data range, nil when no event carries a timestamp.
func (t *Timeline) Range() *TimeRange { return t.rng }

// Events returns every ingested event.
func (t *Timeline) Events() []Event { return t.events }

// Viewport returns the current zoom and center.
func (t *Timeline) Viewport() Viewport { return t.viewport }

// Bounds computes the effective bounds against the current clock.
func (t *Timeline) Bounds() (Bounds, bool) {
	if t.rng == nil {
		return Bounds{}, false
	}
	return EffectiveBounds(*t.rng, t.opts.Floor, t.now(), t.history), true
}

// Wheel zooms around the pointer at x. It reports whether state changed.
func (t *Timeline) Wheel(x float64, rect Rect, deltaY float64) bool {
	b, ok := t.Bounds()
	if !ok {
		return false
	}
	vp, changed := Wheel(t.viewport, b, x, rect, deltaY, t.opts)
	if changed {
		t.viewport = vp
	}
	return changed
}

// DragStart begins a pan at x.
func (t *Timeline) DragStart(x float64, rect Rect) bool {
	b, ok := t.Bounds()
	if !ok {
		return false
	}
	return t.drag.Begin(x, rect, b)
}

// DragMove pans by the pointer travel since the last move.
func (t *Timeline) DragMove(x float64, rect Rect) bool {
	vp, changed := t.drag.Move(t.viewport, x, rect)
	if changed {
		t.viewport = vp
	}
	return changed
}

// DragEnd finishes a pan.
func (t *Timeline) DragEnd() { t.drag.End() }

// Dragging reports whether a pan is in progress.
func (t *Timeline) Dragging() bool { return t.drag.Active() }

// ZoomBy zooms around the window center by a wheel-equivalent delta.
func (t *Timeline) ZoomBy(deltaY float64) bool {
	return t.Wheel(50, Rect{Width: 100}, deltaY)
}

// PanBy shifts the window by a fraction of its width, clamped to the bounds.
func (t *Timeline) PanBy(fraction float64) bool {
	b, ok := t.Bounds()
	if !ok {
		return false
	}
	w := t.viewport.Width()
	t.viewport.Center = b.ClampCenter(t.viewport.Center+fraction*w, w)
	return true
}

// Hover returns the visible marker nearest the pointer, if close enough.
// No hover is reported while dragging.
func (t *Timeline) Hover(x float64, rect Rect) (Marker, bool) {
	pct, ok := rect.Percent(x)
	if !ok || t.drag.Active() {
		return Marker{}, false
	}
	return Nearest(t.markers(rect.Width), pct, t.opts.HoverThreshold)
}

// Frame is everything a host needs to draw the current state.
type Frame struct {
	Range     *TimeRange `json:"range,omitempty"`
	Viewport  Viewport   `json:"viewport"`
	Bounds    *Bounds    `json:"bounds,omitempty"`
	Timeframe string     `json:"timeframe"`
	Markers   []Marker   `json:"markers"`
	Ticks     []Tick     `json:"ticks"`
	Labels    []Label    `json:"labels"`
	Visible   int        `json:"visible"`
	Total     int        `json:"total"`
}

// Frame renders the current state for a track widthPx pixels wide.
func (t *Timeline) Frame(widthPx float64) Frame {
	f := Frame{
		Viewport:  t.viewport,
		Timeframe: TimeframeLabel(t.rng, t.viewport),
		Markers:   []Marker{},
		Ticks:     []Tick{},
		Labels:    []Label{},
		Total:     len(t.events),
	}
	if t.rng == nil {
		return f
	}
	f.Range = t.rng
	if b, ok := t.Bounds(); ok {
		f.Bounds = &b
	}
	f.Markers = t.markers(widthPx)
	f.Visible = len(f.Markers)
	if ticks := Ticks(*t.rng, t.viewport); len(ticks) > 0 {
		f.Ticks = ticks
		f.Labels = Labels(ticks, *t.rng, t.viewport, t.loc)
	}
	return f
}

// WindowHours is the visible window length in hours.
func (t *Timeline) WindowHours() float64 {
	if t.rng == nil {
		return 0
	}
	startMs, endMs := windowMillis(*t.rng, t.viewport)
	return (endMs - startMs) / float64(time.Hour.Milliseconds())
}

func (t *Timeline) markers(widthPx float64) []Marker {
	if t.rng == nil {
		return []Marker{}
	}
	visible := VisibleEvents(t.events, t.viewport)
	sized := SizeMarkers(visible, t.WindowHours(), t.opts.Sizing)
	return ResolveOverlaps(sized, t.viewport.Zoom, widthPx, t.opts.Overlap)
}
