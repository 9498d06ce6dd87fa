package timeline

import (
	"testing"
	"time"
)

func TestIntervals(t *testing.T) {
	tests := []struct {
		window       time.Duration
		major, minor time.Duration
	}{
		{90 * time.Minute, 15 * time.Minute, 5 * time.Minute},
		{6 * time.Hour, time.Hour, 15 * time.Minute},
		{2 * day, 6 * time.Hour, time.Hour},
		{10 * day, day, 6 * time.Hour},
		{30 * day, week, day},
		{200 * day, 30 * day, week},
		{5 * 365 * day, 365 * day, 30 * day},
	}
	for _, tt := range tests {
		major, minor := Intervals(float64(tt.window.Milliseconds()))
		if major != tt.major || minor != tt.minor {
			t.Errorf("Intervals(%v) = %v/%v, want %v/%v", tt.window, major, minor, tt.major, tt.minor)
		}
	}
}

func TestTicksOneHourWindow(t *testing.T) {
	r := TimeRange{Min: t0.UnixMilli(), Max: t0.Add(time.Hour).UnixMilli()}
	r.Duration = r.Max - r.Min
	vp := Viewport{Zoom: 1, Center: 50}

	ticks := Ticks(r, vp)

	var majors, minors []Tick
	for _, tk := range ticks {
		switch tk.Kind {
		case TickMajor:
			majors = append(majors, tk)
		case TickMinor:
			minors = append(minors, tk)
		}
	}

	wantMajor := []float64{0, 25, 50, 75, 100}
	if len(majors) != len(wantMajor) {
		t.Fatalf("majors = %d, want %d", len(majors), len(wantMajor))
	}
	for i, want := range wantMajor {
		if majors[i].Position != want {
			t.Errorf("major[%d] = %f, want %f", i, majors[i].Position, want)
		}
	}
	if len(minors) != 8 {
		t.Errorf("minors = %d, want 8 (13 five-minute marks minus 5 coinciding with majors)", len(minors))
	}

	// Majors are emitted before minors.
	for i := 0; i < len(majors); i++ {
		if ticks[i].Kind != TickMajor {
			t.Fatalf("tick %d kind = %s, want major first", i, ticks[i].Kind)
		}
	}
}

func TestTicksStayInWindow(t *testing.T) {
	r := tenDayRange()
	for _, vp := range []Viewport{
		{Zoom: 0.95, Center: 50},
		{Zoom: 3, Center: 20},
		{Zoom: 40, Center: 77},
		{Zoom: 0.01, Center: -300},
	} {
		for _, tk := range Ticks(r, vp) {
			if tk.Position < -1e-9 || tk.Position > 100+1e-9 {
				t.Errorf("vp %+v: tick at %f outside display", vp, tk.Position)
			}
		}
	}
}

func TestLabelsStride(t *testing.T) {
	r := tenDayRange()
	vp := Viewport{Zoom: 1, Center: 50}

	ticks := Ticks(r, vp)
	labels := Labels(ticks, r, vp, time.UTC)

	// 11 daily majors, so every other one is labelled.
	want := []string{"Jan 1", "Jan 3", "Jan 5", "Jan 7", "Jan 9", "Jan 11"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %d, want %d", len(labels), len(want))
	}
	for i, w := range want {
		if labels[i].Text != w {
			t.Errorf("label[%d] = %q, want %q", i, labels[i].Text, w)
		}
	}
}

func TestLabelsAllWhenFew(t *testing.T) {
	r := TimeRange{Min: t0.UnixMilli(), Max: t0.Add(time.Hour).UnixMilli()}
	r.Duration = r.Max - r.Min
	vp := Viewport{Zoom: 1, Center: 50}

	labels := Labels(Ticks(r, vp), r, vp, time.UTC)
	want := []string{"12:00 AM", "12:15 AM", "12:30 AM", "12:45 AM", "1:00 AM"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %d, want %d", len(labels), len(want))
	}
	for i, w := range want {
		if labels[i].Text != w {
			t.Errorf("label[%d] = %q, want %q", i, labels[i].Text, w)
		}
	}
}

func TestLabelLayout(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{time.Hour, "3:04 PM"},
		{24 * time.Hour, "Jan 2 3PM"},
		{10 * day, "Jan 2"},
		{100 * day, "Jan 2006"},
		{3 * 365 * day, "2006"},
	}
	for _, tt := range tests {
		if got := labelLayout(tt.window); got != tt.want {
			t.Errorf("labelLayout(%v) = %q, want %q", tt.window, got, tt.want)
		}
	}
}

func TestTimeframeLabel(t *testing.T) {
	r := tenDayRange()
	tests := []struct {
		zoom float64
		want string
	}{
		{1, "10.0 days"},
		{0.95, "10.5 days"},
		{0.1, "3.3 months"},
		{0.01, "2.7 years"},
		{100, "2.4 hours"},
		{1000, "14 minutes"},
	}
	for _, tt := range tests {
		got := TimeframeLabel(&r, Viewport{Zoom: tt.zoom, Center: 50})
		if got != tt.want {
			t.Errorf("zoom %v: TimeframeLabel = %q, want %q", tt.zoom, got, tt.want)
		}
	}

	if got := TimeframeLabel(nil, Viewport{Zoom: 1, Center: 50}); got != "No data" {
		t.Errorf("nil range = %q, want No data", got)
	}
}
