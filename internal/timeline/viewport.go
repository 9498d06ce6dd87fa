package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Viewport is the zoom/center pair that selects the visible window, both in
// data-range percent.
type Viewport struct {
	Zoom   float64 `json:"zoom"`
	Center float64 `json:"center"`
}

// Width is the visible window width in data-range percent.
func (v Viewport) Width() float64 { return 100 / v.Zoom }

// Start is the left edge of the visible window.
func (v Viewport) Start() float64 { return v.Center - v.Width()/2 }

// End is the right edge of the visible window.
func (v Viewport) End() float64 { return v.Center + v.Width()/2 }

// Contains reports whether a data position falls inside the window, edges included.
func (v Viewport) Contains(pos float64) bool {
	return pos >= v.Start() && pos <= v.End()
}

// Display converts a data position into window-relative percent.
func (v Viewport) Display(pos float64) float64 {
	return (pos - v.Start()) / v.Width() * 100
}

// At converts a window-relative percent back into a data position.
func (v Viewport) At(displayPct float64) float64 {
	return v.Start() + displayPct/100*v.Width()
}

// StartingWindow selects the initial zoom when a new event set is loaded.
type StartingWindow string

const (
	WindowAuto  StartingWindow = "auto"
	WindowHour  StartingWindow = "hour"
	WindowDay   StartingWindow = "day"
	WindowWeek  StartingWindow = "week"
	WindowMonth StartingWindow = "month"
	WindowYear  StartingWindow = "year"
)

// StartingWindows lists every valid setting in display order.
var StartingWindows = []StartingWindow{WindowAuto, WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear}

// autoZoom shows the data range with a little padding on both sides.
const autoZoom = 0.95

// ParseStartingWindow accepts the setting names case-insensitively. An empty
// string means auto.
func ParseStartingWindow(s string) (StartingWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return WindowAuto, nil
	}
	for _, w := range StartingWindows {
		if string(w) == s {
			return w, nil
		}
	}
	return WindowAuto, fmt.Errorf("unknown starting window %q", s)
}

// Duration is the length of one window unit; zero for auto.
func (w StartingWindow) Duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	case WindowYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// InitialZoom computes the zoom that shows exactly one window unit. Data
// shorter than the unit yields a zoom below 1.
func InitialZoom(r TimeRange, w StartingWindow) float64 {
	unit := w.Duration()
	if unit <= 0 {
		return autoZoom
	}
	return float64(r.Duration) / float64(unit.Milliseconds()) * 100
}

// InitialViewport is the state a freshly loaded range starts from.
func InitialViewport(r TimeRange, w StartingWindow) Viewport {
	return Viewport{Zoom: InitialZoom(r, w), Center: 50}
}
