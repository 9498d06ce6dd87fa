package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/timescope/internal/timeline"
)

// session is one loaded timeline. The engine's Timeline is not safe for
// concurrent use, so every access goes through mu.
type session struct {
	id     string
	query  string
	source string

	mu       sync.Mutex
	tl       *timeline.Timeline
	width    float64 // last known track width in px
	lastUsed time.Time
}

// frame renders the session at its last known width. Callers hold mu.
func (ss *session) frame() timeline.Frame {
	return ss.tl.Frame(ss.width)
}

// rect returns the pointer rect, remembering its width for later frames.
// Callers hold mu.
func (ss *session) rect(left, width float64) timeline.Rect {
	if width > 0 {
		ss.width = width
	}
	return timeline.Rect{Left: left, Width: ss.width}
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSessionStore(idle time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		idle:     idle,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (st *sessionStore) setIdle(d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.idle = d
}

func (st *sessionStore) create(tl *timeline.Timeline, query, source string, width float64) *session {
	ss := &session{
		id:       uuid.NewString(),
		query:    query,
		source:   source,
		tl:       tl,
		width:    width,
		lastUsed: st.now(),
	}
	st.mu.Lock()
	st.sessions[ss.id] = ss
	st.mu.Unlock()
	return ss
}

// get returns the session and marks it used.
func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ss, ok := st.sessions[id]
	if ok {
		ss.lastUsed = st.now()
	}
	return ss, ok
}

func (st *sessionStore) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// sweep drops sessions idle for longer than the idle timeout.
func (st *sessionStore) sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.idle <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idle)
	removed := 0
	for id, ss := range st.sessions {
		if ss.lastUsed.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *sessionStore) startJanitor(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := st.sweep(); n > 0 {
					log.Printf("[server] expired %d idle timeline sessions", n)
				}
			case <-st.stopCh:
				return
			}
		}
	}()
}

func (st *sessionStore) stop() {
	st.stopOnce.Do(func() { close(st.stopCh) })
}
