package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/lazypower/timescope/internal/timeline"
)

// column maps a display percent onto one of cols cells.
func column(pct float64, cols int) int {
	c := int(math.Floor(pct / 100 * float64(cols)))
	return max(0, min(cols-1, c))
}

func summaryLine(f timeline.Frame, w timeline.StartingWindow, full bool) string {
	parts := []string{
		f.Timeframe,
		fmt.Sprintf("%s of %s snapshots", humanize.Comma(int64(f.Visible)), humanize.Comma(int64(f.Total))),
		"window " + string(w),
	}
	if f.Range != nil {
		parts = append(parts, fmt.Sprintf("zoom %.2fx", f.Viewport.Zoom))
	}
	if full {
		parts = append(parts, "full history")
	}
	return dimStyle.Render(strings.Join(parts, " • "))
}

// renderTrack draws the marker row. Higher scores are drawn last so they win
// a shared cell; the hovered marker is drawn on top of everything.
func renderTrack(markers []timeline.Marker, cols int, hover *timeline.Marker) string {
	cells := make([]string, cols)
	for i := range cells {
		cells[i] = trackStyle.Render("─")
	}

	ordered := append([]timeline.Marker(nil), markers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Normalized < ordered[j].Normalized
	})
	for _, m := range ordered {
		cells[column(m.DisplayPosition, cols)] = markerStyle(m.Opacity).Render(glyph(m.Size))
	}
	if hover != nil {
		cells[column(hover.DisplayPosition, cols)] = hoverStyle.Render(glyph(hover.Size))
	}
	return strings.Join(cells, "")
}

func renderTicks(ticks []timeline.Tick, cols int) string {
	row := []rune(strings.Repeat(" ", cols))
	for _, t := range ticks {
		c := column(t.Position, cols)
		switch {
		case t.Kind == timeline.TickMajor:
			row[c] = '|'
		case row[c] == ' ':
			row[c] = '\''
		}
	}
	return string(row)
}

// renderLabels centres each label under its tick. A label that would touch
// the previous one is skipped.
func renderLabels(labels []timeline.Label, cols int) string {
	var b strings.Builder
	cursor := 0
	for _, l := range labels {
		w := runewidth.StringWidth(l.Text)
		if w == 0 || w > cols {
			continue
		}
		start := column(l.Position, cols) - w/2
		start = max(0, min(cols-w, start))
		if cursor > 0 && start <= cursor {
			continue
		}
		b.WriteString(strings.Repeat(" ", start-cursor))
		b.WriteString(l.Text)
		cursor = start + w
	}
	return b.String()
}

func renderTooltip(m timeline.Marker, width int) string {
	width = max(20, width)
	var b strings.Builder
	b.WriteString(titleStyle.Render(runewidth.Truncate(m.Title, width, "…")))
	b.WriteString("\n")
	if !m.Time.IsZero() {
		b.WriteString(dimStyle.Render(m.Time.Local().Format("Mon Jan 2 2006, 3:04 PM") + " (" + humanize.Time(m.Time) + ")"))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("relevance %.2f", m.Relevance)))
	if m.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(wordwrap.String(m.Description, width))
	}
	return tooltipStyle.Render(b.String())
}
