package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/timescope/internal/engine"
	"github.com/lazypower/timescope/internal/store"
	"github.com/lazypower/timescope/internal/timeline"
)

// Server is the timescope HTTP API server.
type Server struct {
	db       *store.DB
	engine   *engine.Engine
	sessions *sessionStore
	router   chi.Router
	version  string
	started  time.Time

	mu     sync.RWMutex // guards opts and window
	opts   timeline.Options
	window timeline.StartingWindow
}

// New creates a new Server. eng may be nil, in which case timeline routes
// answer 503.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:       db,
		engine:   eng,
		sessions: newSessionStore(30 * time.Minute),
		version:  version,
		started:  time.Now(),
		opts:     timeline.DefaultOptions(),
		window:   timeline.WindowAuto,
	}
	s.routes()
	return s
}

// SetTimelineDefaults changes the options and starting window given to new
// timelines. Existing sessions keep theirs.
func (s *Server) SetTimelineDefaults(opts timeline.Options, window timeline.StartingWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	s.window = window
}

func (s *Server) timelineDefaults() (timeline.Options, timeline.StartingWindow) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts, s.window
}

// savedWindow is the starting window last picked by a client, if any.
func (s *Server) savedWindow() (timeline.StartingWindow, bool) {
	if s.db == nil {
		return "", false
	}
	v, ok, err := s.db.GetSetting(store.SettingStartingWindow)
	if err != nil || !ok {
		return "", false
	}
	w, err := timeline.ParseStartingWindow(v)
	if err != nil {
		return "", false
	}
	return w, true
}

func (s *Server) rememberWindow(w timeline.StartingWindow) {
	if s.db == nil {
		return
	}
	if err := s.db.SetSetting(store.SettingStartingWindow, string(w)); err != nil {
		log.Printf("[server] remember window: %v", err)
	}
}

// SetSessionIdle changes how long an untouched session lives.
func (s *Server) SetSessionIdle(d time.Duration) {
	s.sessions.setIdle(d)
}

// StartJanitor expires idle sessions every interval until Close.
func (s *Server) StartJanitor(interval time.Duration) {
	s.sessions.startJanitor(interval)
}

// Close stops background work.
func (s *Server) Close() {
	s.sessions.stop()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/searches", s.handleRecentSearches)

		r.Post("/timelines", s.handleCreateTimeline)
		r.Route("/timelines/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTimeline)
			r.Delete("/", s.handleDeleteTimeline)
			r.Post("/wheel", s.handleWheel)
			r.Post("/drag", s.handleDrag)
			r.Post("/hover", s.handleHover)
			r.Put("/window", s.handleSetWindow)
			r.Put("/history", s.handleSetHistory)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK, dbPath := false, ""
	if s.db != nil {
		dbOK = s.db.Ping() == nil
		dbPath = s.db.Path
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"db":       dbOK,
		"db_path":  dbPath,
		"sessions": s.sessions.len(),
		"online":   s.engine != nil && s.engine.Remote != nil,
	})
}

func (s *Server) handleRecentSearches(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not configured")
		return
	}
	limit := intParam(r, "limit", 20)
	searches, err := s.db.RecentSearches(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if searches == nil {
		searches = []store.Search{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": searches})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
