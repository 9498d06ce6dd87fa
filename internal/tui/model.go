// Package tui is the terminal timeline browser. It owns one timeline and
// redraws a frame after every key or mouse event.
package tui

import (
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lazypower/timescope/internal/timeline"
)

const (
	// cellPx is the assumed pixel width of one terminal cell. Marker sizes
	// and the overlap resolver work in pixels.
	cellPx = 8.0
	// wheelDelta is the deltaY of one wheel notch or zoom key press.
	wheelDelta = 50.0
	panStep    = 0.1
	// trackMargin is the column the track starts at, after the app margin.
	trackMargin = 2
	minTrack    = 20
)

// Model is the bubbletea model for the browser.
type Model struct {
	tl      *timeline.Timeline
	query   string
	source  string
	history *timeline.Interval
	showAll bool

	width  int
	height int
	hover  *timeline.Marker
	status string
}

// New wraps a loaded timeline. history is the full-history interval offered
// by the f key; nil disables it.
func New(tl *timeline.Timeline, query, source string, history *timeline.Interval) *Model {
	m := &Model{
		tl:      tl,
		query:   query,
		source:  source,
		history: history,
		width:   100,
		height:  24,
	}
	if history != nil {
		m.showAll = true
		tl.SetFullHistory(history)
	}
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	log.Printf("[tui] browsing %d events for %q", len(m.tl.Events()), m.query)
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.MouseMsg:
		m.updateMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.ZoomIn):
		m.tl.ZoomBy(-wheelDelta)
	case key.Matches(msg, keys.ZoomOut):
		m.tl.ZoomBy(wheelDelta)
	case key.Matches(msg, keys.PanLeft):
		m.tl.PanBy(-panStep)
	case key.Matches(msg, keys.PanRight):
		m.tl.PanBy(panStep)
	case key.Matches(msg, keys.Window):
		i := int(msg.String()[0] - '1')
		w := timeline.StartingWindows[i]
		m.tl.SetStartingWindow(w)
		m.status = "window: " + string(w)
	case key.Matches(msg, keys.History):
		m.toggleHistory()
	default:
		return m, nil
	}
	m.hover = nil
	return m, nil
}

func (m *Model) toggleHistory() {
	if m.history == nil {
		m.status = "full history unavailable"
		return
	}
	m.showAll = !m.showAll
	if m.showAll {
		m.tl.SetFullHistory(m.history)
		m.status = "full history on"
	} else {
		m.tl.SetFullHistory(nil)
		m.tl.PanBy(0)
		m.status = "full history off"
	}
}

func (m *Model) updateMouse(msg tea.MouseMsg) {
	rect := m.rect()
	x := (float64(msg.X) + 0.5) * cellPx

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.tl.Wheel(x, rect, -wheelDelta)
		m.hover = nil
	case msg.Button == tea.MouseButtonWheelDown:
		m.tl.Wheel(x, rect, wheelDelta)
		m.hover = nil
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.tl.DragStart(x, rect)
		m.hover = nil
	case msg.Action == tea.MouseActionMotion && m.tl.Dragging():
		m.tl.DragMove(x, rect)
	case msg.Action == tea.MouseActionRelease:
		m.tl.DragEnd()
	case msg.Action == tea.MouseActionMotion:
		if mk, ok := m.tl.Hover(x, rect); ok {
			m.hover = &mk
		} else {
			m.hover = nil
		}
	}
}

// trackCols is the number of columns the track occupies.
func (m *Model) trackCols() int {
	return max(minTrack, m.width-2*trackMargin)
}

// rect is the track extent in pixels.
func (m *Model) rect() timeline.Rect {
	return timeline.Rect{Left: trackMargin * cellPx, Width: float64(m.trackCols()) * cellPx}
}

func (m *Model) View() string {
	cols := m.trackCols()
	frame := m.tl.Frame(float64(cols) * cellPx)

	var b strings.Builder
	b.WriteString(m.header(frame))
	b.WriteString("\n\n")
	b.WriteString(renderTrack(frame.Markers, cols, m.hover))
	b.WriteString("\n")
	b.WriteString(tickStyle.Render(renderTicks(frame.Ticks, cols)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(renderLabels(frame.Labels, cols)))
	b.WriteString("\n")

	if m.hover != nil {
		b.WriteString("\n")
		b.WriteString(renderTooltip(*m.hover, min(60, cols-4)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return appStyle.Render(b.String())
}

func (m *Model) header(f timeline.Frame) string {
	badge := remoteBadge.Render("● memoir")
	if m.source != "remote" {
		badge = cacheBadge.Render("● cache")
	}
	title := titleStyle.Render("timescope")
	if m.query != "" {
		title += dimStyle.Render("  “" + m.query + "”")
	}
	return title + "  " + badge + "\n" + summaryLine(f, m.tl.StartingWindow(), m.showAll)
}

func (m *Model) footer() string {
	var parts []string
	for _, k := range keys.help() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	line := dimStyle.Render(strings.Join(parts, " • "))
	if m.status != "" {
		line = m.status + "\n" + line
	}
	return line
}
