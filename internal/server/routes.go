package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/timescope/internal/engine"
	"github.com/lazypower/timescope/internal/timeline"
)

const queryTimeout = 30 * time.Second

type createRequest struct {
	Query          string    `json:"query"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	K              int       `json:"k"`
	Threshold      *float64  `json:"threshold"`
	StartingWindow string    `json:"starting_window"`
	Width          float64   `json:"width"`
	FullHistory    *bool     `json:"full_history"` // default true
}

func (s *Server) handleCreateTimeline(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	rangeQuery := !req.Start.IsZero() && !req.End.IsZero()
	if req.Query == "" && !rangeQuery {
		http.Error(w, `{"error":"query or start/end required"}`, http.StatusBadRequest)
		return
	}
	if rangeQuery && req.End.Before(req.Start) {
		http.Error(w, `{"error":"end before start"}`, http.StatusBadRequest)
		return
	}

	opts, window := s.timelineDefaults()
	if req.StartingWindow != "" {
		sw, err := timeline.ParseStartingWindow(req.StartingWindow)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		window = sw
	} else if saved, ok := s.savedWindow(); ok {
		window = saved
	}

	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	var (
		res *engine.Result
		err error
	)
	if req.Query != "" {
		res, err = s.engine.Search(ctx, req.Query, engine.SearchOpts{
			K:         req.K,
			Threshold: req.Threshold,
			Start:     req.Start,
			End:       req.End,
		})
	} else {
		res, err = s.engine.Range(ctx, req.Start, req.End, req.K)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	tl := timeline.New(opts)
	tl.SetStartingWindow(window)
	if req.FullHistory == nil || *req.FullHistory {
		iv := s.engine.FullHistory(ctx)
		tl.SetFullHistory(&iv)
	}
	tl.Load(res.Records())

	ss := s.sessions.create(tl, req.Query, res.Source, req.Width)
	ss.mu.Lock()
	frame := ss.frame()
	ss.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        ss.id,
		"query":     ss.query,
		"source":    res.Source,
		"search_id": res.SearchID,
		"frame":     frame,
	})
}

// withSession resolves {id} and runs fn with the session locked.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(ss *session)) {
	ss, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, `{"error":"timeline not found"}`, http.StatusNotFound)
		return
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	fn(ss)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ss *session) {
		if width := floatParam(r, "width", 0); width > 0 {
			ss.width = width
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":              ss.id,
			"query":           ss.query,
			"source":          ss.source,
			"starting_window": ss.tl.StartingWindow(),
			"full_history":    ss.tl.FullHistory(),
			"frame":           ss.frame(),
		})
	})
}

func (s *Server) handleDeleteTimeline(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(chi.URLParam(r, "id")) {
		http.Error(w, `{"error":"timeline not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pointer is the common body of pointer events.
type pointer struct {
	X      float64 `json:"x"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	DeltaY float64 `json:"delta_y"`
	Phase  string  `json:"phase"`
}

func decodePointer(w http.ResponseWriter, r *http.Request) (pointer, bool) {
	var p pointer
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return p, false
	}
	return p, true
}

func (s *Server) handleWheel(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePointer(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(ss *session) {
		changed := ss.tl.Wheel(p.X, ss.rect(p.Left, p.Width), p.DeltaY)
		writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "frame": ss.frame()})
	})
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePointer(w, r)
	if !ok {
		return
	}
	switch p.Phase {
	case "start", "move", "end":
	default:
		http.Error(w, `{"error":"phase must be start, move or end"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(ss *session) {
		writeJSON(w, http.StatusOK, map[string]any{
			"changed":  applyDrag(ss, p),
			"dragging": ss.tl.Dragging(),
			"frame":    ss.frame(),
		})
	})
}

// applyDrag runs one drag phase. Callers hold ss.mu.
func applyDrag(ss *session, p pointer) bool {
	switch p.Phase {
	case "start":
		return ss.tl.DragStart(p.X, ss.rect(p.Left, p.Width))
	case "move":
		return ss.tl.DragMove(p.X, ss.rect(p.Left, p.Width))
	default:
		ss.tl.DragEnd()
		return false
	}
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePointer(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(ss *session) {
		m, hit := ss.tl.Hover(p.X, ss.rect(p.Left, p.Width))
		body := map[string]any{"hit": hit}
		if hit {
			body["marker"] = m
		}
		writeJSON(w, http.StatusOK, body)
	})
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Window string `json:"window"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	win, err := timeline.ParseStartingWindow(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withSession(w, r, func(ss *session) {
		ss.tl.SetStartingWindow(win)
		s.rememberWindow(win)
		writeJSON(w, http.StatusOK, map[string]any{"starting_window": win, "frame": ss.frame()})
	})
}

func (s *Server) handleSetHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	var iv *timeline.Interval
	if req.Enabled {
		if s.engine == nil {
			writeError(w, http.StatusServiceUnavailable, "engine not configured")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()
		full := s.engine.FullHistory(ctx)
		iv = &full
	}

	s.withSession(w, r, func(ss *session) {
		ss.tl.SetFullHistory(iv)
		// Bounds may have shrunk; re-clamp by panning zero.
		ss.tl.PanBy(0)
		writeJSON(w, http.StatusOK, map[string]any{"full_history": ss.tl.FullHistory(), "frame": ss.frame()})
	})
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func floatParam(r *http.Request, name string, def float64) float64 {
	if v := r.URL.Query().Get(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
