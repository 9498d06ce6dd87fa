package timeline

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

const eps = 1e-9

// tenDayRange covers t0 .. t0+10d.
func tenDayRange() TimeRange {
	r := TimeRange{Min: t0.UnixMilli(), Max: t0.Add(10 * 24 * time.Hour).UnixMilli()}
	r.Duration = r.Max - r.Min
	return r
}

func TestInitialZoom(t *testing.T) {
	r := tenDayRange()

	if got := InitialZoom(r, WindowAuto); got != 0.95 {
		t.Errorf("auto zoom = %f, want 0.95", got)
	}
	if got := InitialZoom(r, WindowDay); math.Abs(got-1000) > eps {
		t.Errorf("day zoom = %f, want 1000", got)
	}

	year := InitialZoom(r, WindowYear)
	if math.Abs(year-10.0/365*100) > 1e-6 {
		t.Errorf("year zoom = %f, want ~2.74", year)
	}
	// width = 100/zoom, so a year over ten days of data is 36.5 data-range widths.
	vp := Viewport{Zoom: year, Center: 50}
	if math.Abs(vp.Width()-36.5) > 1e-6 {
		t.Errorf("year window width = %f, want 36.5", vp.Width())
	}
}

func TestInitialViewportCentered(t *testing.T) {
	for _, w := range StartingWindows {
		vp := InitialViewport(tenDayRange(), w)
		if vp.Center != 50 {
			t.Errorf("%s: center = %f, want 50", w, vp.Center)
		}
	}
}

func TestParseStartingWindow(t *testing.T) {
	for _, in := range []string{"auto", "Hour", " day ", "WEEK", "month", "year"} {
		if _, err := ParseStartingWindow(in); err != nil {
			t.Errorf("ParseStartingWindow(%q): %v", in, err)
		}
	}
	if w, err := ParseStartingWindow(""); err != nil || w != WindowAuto {
		t.Errorf("empty = %q, %v; want auto", w, err)
	}
	if _, err := ParseStartingWindow("decade"); err == nil {
		t.Error("expected error for unknown window")
	}
}

func TestWindowWidthDecreasesWithZoom(t *testing.T) {
	prev := math.Inf(1)
	for _, z := range []float64{0.01, 0.5, 1, 2, 10, 100, 10000} {
		w := Viewport{Zoom: z, Center: 50}.Width()
		if !(w < prev) {
			t.Errorf("width(%f) = %f, not below %f", z, w, prev)
		}
		prev = w
	}
}

func TestEffectiveBounds(t *testing.T) {
	r := tenDayRange()
	floor := t0.Add(-10 * 24 * time.Hour)
	now := t0.Add(20 * 24 * time.Hour)

	b := EffectiveBounds(r, floor, now, nil)
	if math.Abs(b.Min+100) > eps || math.Abs(b.Max-200) > eps {
		t.Errorf("bounds = %+v, want [-100, 200]", b)
	}

	full := &Interval{Start: t0.Add(-20 * 24 * time.Hour), End: t0.Add(5 * 24 * time.Hour)}
	b = EffectiveBounds(r, floor, now, full)
	if math.Abs(b.Min+200) > eps || math.Abs(b.Max-200) > eps {
		t.Errorf("bounds with history = %+v, want [-200, 200]", b)
	}
}

func TestEffectiveBoundsAlwaysCoverData(t *testing.T) {
	r := tenDayRange()
	// A narrow, stale history interval must not shrink the bounds below the data.
	full := &Interval{Start: t0.Add(2 * 24 * time.Hour), End: t0.Add(3 * 24 * time.Hour)}
	b := EffectiveBounds(r, time.Time{}, t0, full)
	if b.Min > 0 || b.Max < 100 {
		t.Errorf("bounds = %+v, want to include [0, 100]", b)
	}
}

func TestClampCenterDegenerate(t *testing.T) {
	b := Bounds{Min: -50, Max: 150}
	if got := b.ClampCenter(500, 400); got != 50 {
		t.Errorf("wide window center = %f, want midpoint 50", got)
	}
	if got := b.ClampCenter(500, 100); got != 100 {
		t.Errorf("clamped center = %f, want 100", got)
	}
	if got := b.ClampCenter(-500, 100); got != 0 {
		t.Errorf("clamped center = %f, want 0", got)
	}
}

func testBounds() Bounds {
	return Bounds{Min: -1000, Max: 100}
}

func TestWheelKeepsPointUnderCursor(t *testing.T) {
	opts := DefaultOptions()
	rect := Rect{Left: 0, Width: 1000}
	vp := Viewport{Zoom: 1, Center: 50}
	// Wide enough that no step here hits the clamp.
	wide := Bounds{Min: -10000, Max: 10000}

	for _, x := range []float64{0, 125, 250, 500, 900} {
		for _, dy := range []float64{-100, -30, 40} {
			pct, _ := rect.Percent(x)
			before := vp.At(pct)
			next, ok := Wheel(vp, wide, x, rect, dy, opts)
			if !ok {
				t.Fatalf("Wheel(x=%f, dy=%f) reported no change", x, dy)
			}
			after := next.At(pct)
			if math.Abs(after-before) > 1e-9 {
				t.Errorf("x=%f dy=%f: under cursor %f -> %f", x, dy, before, after)
			}
		}
	}
}

func TestWheelZoomIn(t *testing.T) {
	vp := Viewport{Zoom: 1, Center: 50}
	next, ok := Wheel(vp, testBounds(), 250, Rect{Width: 1000}, -100, DefaultOptions())
	if !ok {
		t.Fatal("expected change")
	}
	if math.Abs(next.Zoom-math.E) > 1e-9 {
		t.Errorf("zoom = %f, want e", next.Zoom)
	}
	if next.Width() >= vp.Width() {
		t.Errorf("width %f did not shrink from %f", next.Width(), vp.Width())
	}
}

func TestWheelClampsToMinZoom(t *testing.T) {
	b := testBounds()
	vp := Viewport{Zoom: b.MinZoom(), Center: b.Mid()}
	next, ok := Wheel(vp, b, 500, Rect{Width: 1000}, 1000, DefaultOptions())
	if !ok {
		t.Fatal("expected Wheel to apply")
	}
	if next.Zoom != b.MinZoom() {
		t.Errorf("zoom = %v, want exactly minZoom %v", next.Zoom, b.MinZoom())
	}
	if math.Abs(next.Center-b.Mid()) > 1e-9 {
		t.Errorf("center = %f, want %f", next.Center, b.Mid())
	}
}

func TestWheelClampsToMaxZoom(t *testing.T) {
	opts := DefaultOptions()
	vp := Viewport{Zoom: opts.MaxZoom * 0.9, Center: 50}
	next, _ := Wheel(vp, testBounds(), 500, Rect{Width: 1000}, -5000, opts)
	if next.Zoom != opts.MaxZoom {
		t.Errorf("zoom = %f, want %f", next.Zoom, opts.MaxZoom)
	}
}

func TestWheelOutsideRectIgnored(t *testing.T) {
	vp := Viewport{Zoom: 1, Center: 50}
	rect := Rect{Left: 100, Width: 1000}
	for _, x := range []float64{50, 1101} {
		next, ok := Wheel(vp, testBounds(), x, rect, -100, DefaultOptions())
		if ok || next != vp {
			t.Errorf("x=%f: got %+v, %v; want unchanged", x, next, ok)
		}
	}
	if _, ok := Wheel(vp, testBounds(), 10, Rect{}, -100, DefaultOptions()); ok {
		t.Error("zero-width rect should be ignored")
	}
}

func TestWheelCenterWeight(t *testing.T) {
	opts := DefaultOptions()
	opts.CenterWeight = 1
	vp := Viewport{Zoom: 1, Center: 50}
	next, _ := Wheel(vp, testBounds(), 100, Rect{Width: 1000}, -100, opts)
	if math.Abs(next.Center-50) > 1e-9 {
		t.Errorf("center-weighted zoom moved center to %f", next.Center)
	}
}

func TestWheelHalfCenterWeightKeepsBlendedPoint(t *testing.T) {
	opts := DefaultOptions()
	opts.CenterWeight = 0.5
	vp := Viewport{Zoom: 1, Center: 50}
	wide := Bounds{Min: -10000, Max: 10000}

	// Cursor at 10%, blended halfway to the center gives 30%.
	before := vp.At(30)
	next, ok := Wheel(vp, wide, 100, Rect{Width: 1000}, -100, opts)
	if !ok {
		t.Fatal("expected change")
	}
	if after := next.At(30); math.Abs(after-before) > 1e-9 {
		t.Errorf("point under blended cursor moved %f -> %f", before, after)
	}
}

func TestDragPansOpposite(t *testing.T) {
	var d Drag
	rect := Rect{Width: 1000}
	vp := Viewport{Zoom: 1, Center: 50}

	if !d.Begin(500, rect, testBounds()) {
		t.Fatal("Begin failed")
	}
	next, ok := d.Move(vp, 600, rect)
	if !ok {
		t.Fatal("Move failed")
	}
	if math.Abs(next.Center-40) > 1e-9 {
		t.Errorf("center = %f, want 40", next.Center)
	}

	// Incremental: next move measures from 600.
	next, _ = d.Move(next, 550, rect)
	if math.Abs(next.Center-45) > 1e-9 {
		t.Errorf("center = %f, want 45", next.Center)
	}

	d.End()
	if _, ok := d.Move(next, 900, rect); ok {
		t.Error("Move after End should be ignored")
	}
}

func TestDragReentryDoesNotJump(t *testing.T) {
	var d Drag
	rect := Rect{Left: 100, Width: 1000}
	vp := Viewport{Zoom: 1, Center: 50}
	d.Begin(600, rect, testBounds())

	if _, ok := d.Move(vp, 1500, rect); ok {
		t.Fatal("move outside rect should be ignored")
	}
	if next, ok := d.Move(vp, 200, rect); ok || next != vp {
		t.Fatalf("re-entry moved view to %+v", next)
	}
	next, ok := d.Move(vp, 300, rect)
	if !ok {
		t.Fatal("move after re-entry ignored")
	}
	if math.Abs(next.Center-40) > 1e-9 {
		t.Errorf("center = %f, want 40 (pan measured from re-entry point)", next.Center)
	}
}

func TestDragClampsToBounds(t *testing.T) {
	var d Drag
	rect := Rect{Width: 1000}
	vp := Viewport{Zoom: 1, Center: 50}
	d.Begin(0, rect, testBounds())

	next, _ := d.Move(vp, 1000, rect) // pan left by one window
	next, _ = d.Move(next, 0, rect)   // pan right by one window
	next, _ = d.Move(next, 1000, rect)
	d.Begin(0, rect, testBounds())
	next, _ = d.Move(next, 0, rect)

	if next.End() > testBounds().Max+eps {
		t.Errorf("window end %f past bounds max", next.End())
	}
}

func TestDragBeginOutsideIgnored(t *testing.T) {
	var d Drag
	if d.Begin(-1, Rect{Width: 100}, testBounds()) {
		t.Error("Begin outside rect should fail")
	}
	if d.Active() {
		t.Error("drag should be inactive")
	}
}

func TestClampInvariantUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := testBounds()
	rect := Rect{Left: 20, Width: 800}
	opts := DefaultOptions()
	vp := Viewport{Zoom: 1, Center: 50}
	var d Drag

	for i := 0; i < 5000; i++ {
		x := rect.Left + rng.Float64()*rect.Width
		switch rng.Intn(4) {
		case 0, 1:
			vp, _ = Wheel(vp, b, x, rect, (rng.Float64()-0.5)*600, opts)
		case 2:
			if !d.Active() {
				d.Begin(x, rect, b)
			} else {
				d.End()
			}
		case 3:
			vp, _ = d.Move(vp, x, rect)
		}

		if vp.Width() < b.Width() {
			if vp.Start() < b.Min-1e-6 || vp.End() > b.Max+1e-6 {
				t.Fatalf("step %d: window [%f, %f] escapes bounds [%f, %f]", i, vp.Start(), vp.End(), b.Min, b.Max)
			}
		}
		if vp.Zoom < b.MinZoom()-1e-12 || vp.Zoom > opts.MaxZoom {
			t.Fatalf("step %d: zoom %f outside [%f, %f]", i, vp.Zoom, b.MinZoom(), opts.MaxZoom)
		}
	}
}
