package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/timescope/internal/config"
	"github.com/lazypower/timescope/internal/engine"
	"github.com/lazypower/timescope/internal/timeline"
)

// queryFlags are shared by search and browse.
type queryFlags struct {
	k         int
	threshold float64
	start     string
	end       string
	window    string
	noHistory bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.k, "k", "k", 0, "maximum snapshots to fetch (default from config)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", -1, "minimum similarity (default from config)")
	cmd.Flags().StringVar(&f.start, "start", "", "only snapshots at or after this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "only snapshots at or before this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVarP(&f.window, "window", "w", "", "starting window: auto, hour, day, week, month, year")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not extend the zoom-out bounds to the full history")
}

// loaded is a timeline filled from one query.
type loaded struct {
	query   string
	result  *engine.Result
	tl      *timeline.Timeline
	history *timeline.Interval
}

// load runs the query described by args and flags and loads the answer into
// a timeline. With no query text, --start and --end select a range instead.
func (f *queryFlags) load(ctx context.Context, cfg config.Config, eng *engine.Engine, args []string) (*loaded, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	start, err := parseDate(f.start, false)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	end, err := parseDate(f.end, true)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}
	if query == "" && (start.IsZero() || end.IsZero()) {
		return nil, fmt.Errorf("a query or both --start and --end are required")
	}

	window := cfg.Timeline.Window()
	if f.window != "" {
		if window, err = timeline.ParseStartingWindow(f.window); err != nil {
			return nil, err
		}
	}

	k := f.k
	if k <= 0 {
		k = cfg.Memoir.K
	}
	threshold := cfg.Memoir.Threshold
	if f.threshold >= 0 {
		threshold = f.threshold
	}

	var res *engine.Result
	if query != "" {
		res, err = eng.Search(ctx, query, engine.SearchOpts{K: k, Threshold: &threshold, Start: start, End: end})
	} else {
		res, err = eng.Range(ctx, start, end, k)
	}
	if err != nil {
		return nil, err
	}

	tl := timeline.New(cfg.Timeline.Options())
	tl.SetStartingWindow(window)
	out := &loaded{query: query, result: res, tl: tl}
	if !f.noHistory {
		iv := eng.FullHistory(ctx)
		out.history = &iv
		tl.SetFullHistory(&iv)
	}
	tl.Load(res.Records())
	return out, nil
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

var (
	searchFlags  queryFlags
	searchFormat string
	searchWidth  float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memoir and print the resulting timeline frame",
	Long: "Search memoir (or the local cache when memoir is unreachable) and print the " +
		"timeline frame at the starting window. Without a query, --start and --end list a range.",
	RunE: runSearch,
}

func init() {
	searchFlags.register(searchCmd)
	searchCmd.Flags().StringVarP(&searchFormat, "format", "o", "text", "output format: text, json, yaml")
	searchCmd.Flags().Float64Var(&searchWidth, "width", 1000, "rendered track width in pixels")
}

func runSearch(cmd *cobra.Command, args []string) error {
	switch searchFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", searchFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, err := searchFlags.load(ctx, cfg, newEngine(cfg, db), args)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	rep := newReport(l, l.tl.Frame(searchWidth))
	return writeReport(cmd.OutOrStdout(), rep, searchFormat)
}

// report is the printable form of a frame.
type report struct {
	Query     string            `json:"query,omitempty" yaml:"query,omitempty"`
	Source    string            `json:"source" yaml:"source"`
	Window    string            `json:"window" yaml:"window"`
	Timeframe string            `json:"timeframe" yaml:"timeframe"`
	Visible   int               `json:"visible" yaml:"visible"`
	Total     int               `json:"total" yaml:"total"`
	Viewport  timeline.Viewport `json:"viewport" yaml:"viewport"`
	Markers   []markerReport    `json:"markers" yaml:"markers"`
	Labels    []string          `json:"labels" yaml:"labels"`
}

type markerReport struct {
	ID        string    `json:"id" yaml:"id"`
	Time      time.Time `json:"time" yaml:"time"`
	Title     string    `json:"title" yaml:"title"`
	Relevance float64   `json:"relevance" yaml:"relevance"`
	Position  float64   `json:"position" yaml:"position"`
	Size      float64   `json:"size" yaml:"size"`
	Opacity   float64   `json:"opacity" yaml:"opacity"`
}

func newReport(l *loaded, f timeline.Frame) report {
	rep := report{
		Query:     l.query,
		Source:    l.result.Source,
		Window:    string(l.tl.StartingWindow()),
		Timeframe: f.Timeframe,
		Visible:   f.Visible,
		Total:     f.Total,
		Viewport:  f.Viewport,
		Markers:   make([]markerReport, 0, len(f.Markers)),
		Labels:    make([]string, 0, len(f.Labels)),
	}
	for _, m := range f.Markers {
		rep.Markers = append(rep.Markers, markerReport{
			ID:        m.ID,
			Time:      m.Time,
			Title:     m.Title,
			Relevance: m.Relevance,
			Position:  m.DisplayPosition,
			Size:      m.Size,
			Opacity:   m.Opacity,
		})
	}
	for _, lb := range f.Labels {
		rep.Labels = append(rep.Labels, lb.Text)
	}
	return rep
}

func writeReport(w io.Writer, rep report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}

	header := rep.Source
	if rep.Query != "" {
		header = fmt.Sprintf("%q from %s", rep.Query, rep.Source)
	}
	fmt.Fprintf(w, "%s\n%s, %s of %s snapshots visible (window %s)\n",
		header, rep.Timeframe, humanize.Comma(int64(rep.Visible)), humanize.Comma(int64(rep.Total)), rep.Window)
	if len(rep.Labels) > 0 {
		fmt.Fprintf(w, "axis: %s\n", strings.Join(rep.Labels, " | "))
	}
	if len(rep.Markers) == 0 {
		fmt.Fprintln(w, "No snapshots in view.")
		return nil
	}
	fmt.Fprintln(w)
	for _, m := range byTime(rep.Markers) {
		fmt.Fprintf(w, "  %s  %5.1f%%  [%.2f]  %s\n",
			m.Time.Local().Format("2006-01-02 15:04"), m.Position, m.Relevance, m.Title)
	}
	return nil
}

func byTime(ms []markerReport) []markerReport {
	out := append([]markerReport(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
