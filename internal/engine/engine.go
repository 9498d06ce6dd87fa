// Package engine answers timeline queries. The memoir server is asked first
// and every answer is cached; when it cannot be reached the engine falls back
// to the local cache, replaying a previous answer or running an offline
// TF-IDF search over cached summaries.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lazypower/timescope/internal/memoir"
	"github.com/lazypower/timescope/internal/store"
	"github.com/lazypower/timescope/internal/timeline"
)

// Remote is the subset of the memoir API the engine uses.
type Remote interface {
	Search(ctx context.Context, p memoir.SearchParams) (*memoir.Response, error)
	Range(ctx context.Context, p memoir.RangeParams) (*memoir.Response, error)
	Me(ctx context.Context) (*memoir.UserInfo, error)
}

// Engine orchestrates remote queries, the snapshot cache and offline search.
type Engine struct {
	DB       *store.DB
	Remote   Remote // nil means offline only
	Embedder Embedder
	Now      func() time.Time

	mu       sync.Mutex // serializes embedding refreshes
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Engine.
func New(db *store.DB, remote Remote) *Engine {
	return &Engine{
		DB:     db,
		Remote: remote,
		Now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// SetEmbedder pins the embedding provider used for offline search. Without
// one, a TF-IDF embedder is rebuilt from the cache whenever needed.
func (e *Engine) SetEmbedder(emb Embedder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Embedder = emb
}

// Result is the answer to a search or range query.
type Result struct {
	Source    string            `json:"source"` // store.SourceRemote or store.SourceCache
	Snapshots []memoir.Snapshot `json:"snapshots"`
	SearchID  int64             `json:"search_id"`
}

// Records converts the snapshots into timeline input.
func (r *Result) Records() []timeline.Record {
	return memoir.Records(r.Snapshots)
}

// Search runs a semantic search. A remote failure is logged and answered from
// the cache; the error is only returned when the cache fails too.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOpts) (*Result, error) {
	if e.Remote != nil {
		resp, err := e.Remote.Search(ctx, memoir.SearchParams{
			Query:     query,
			K:         opts.k(),
			Threshold: opts.Threshold,
			Start:     opts.Start,
			End:       opts.End,
		})
		if err == nil {
			return e.remember(ctx, query, store.ModeSearch, resp.Snapshots)
		}
		log.Printf("[engine] remote search %q failed, using cache: %v", query, err)
	}
	return e.searchCache(ctx, query, opts)
}

func (e *Engine) searchCache(ctx context.Context, query string, opts SearchOpts) (*Result, error) {
	prev, err := e.DB.LatestRemoteSearch(query, store.ModeSearch)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		cached, err := e.DB.SearchResults(prev.ID)
		if err != nil {
			return nil, err
		}
		var snaps []memoir.Snapshot
		for _, s := range cached {
			if opts.inWindow(s) {
				snaps = append(snaps, fromStore(s))
			}
		}
		if len(snaps) > opts.k() {
			snaps = snaps[:opts.k()]
		}
		return e.logCached(query, store.ModeSearch, snaps)
	}

	emb, err := e.embedder(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := Find(ctx, e.DB, emb, query, opts)
	if err != nil {
		return nil, fmt.Errorf("offline search: %w", err)
	}
	snaps := make([]memoir.Snapshot, len(matches))
	for i, m := range matches {
		s := fromStore(m.Snapshot)
		similarity := m.Similarity
		s.Similarity = &similarity
		snaps[i] = s
	}
	return e.logCached(query, store.ModeSearch, snaps)
}

// Range lists snapshots between start and end, remote first.
func (e *Engine) Range(ctx context.Context, start, end time.Time, k int) (*Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	label := rangeLabel(start, end)
	if e.Remote != nil {
		resp, err := e.Remote.Range(ctx, memoir.RangeParams{Start: start, End: end, K: k})
		if err == nil {
			return e.remember(ctx, label, store.ModeRange, resp.Snapshots)
		}
		log.Printf("[engine] remote range %s failed, using cache: %v", label, err)
	}

	cached, err := e.DB.SnapshotsBetween(start.UnixMilli(), end.UnixMilli(), k)
	if err != nil {
		return nil, err
	}
	snaps := make([]memoir.Snapshot, len(cached))
	for i, s := range cached {
		snaps[i] = fromStore(s)
		snaps[i].Similarity = nil
	}
	return e.logCached(label, store.ModeRange, snaps)
}

func rangeLabel(start, end time.Time) string {
	return memoir.FormatDate(start) + ".." + memoir.FormatDate(end)
}

// FullHistory returns the broadest interval worth zooming out to. The memoir
// account info is preferred; offline, the oldest cached snapshot stands in.
// It never fails.
func (e *Engine) FullHistory(ctx context.Context) timeline.Interval {
	now := e.Now()
	if e.Remote != nil {
		info, err := e.Remote.Me(ctx)
		if err == nil {
			return memoir.HistoryFrom(info, now)
		}
		log.Printf("[engine] account info failed, using cache: %v", err)
	}

	oldest, err := e.DB.OldestSnapshot()
	if err != nil || oldest == nil {
		return memoir.FallbackHistory(now)
	}
	return memoir.HistorySince(time.UnixMilli(*oldest), now)
}

// Import caches snapshots from a fixture or export and embeds them.
func (e *Engine) Import(ctx context.Context, snaps []memoir.Snapshot) (int, error) {
	n, err := e.DB.UpsertSnapshots(toStoreAll(snaps))
	if err != nil {
		return 0, err
	}
	if _, err := e.EmbedMissing(ctx); err != nil {
		log.Printf("[engine] embed after import: %v", err)
	}
	return n, nil
}

// remember caches a remote answer and logs the search.
func (e *Engine) remember(ctx context.Context, query, mode string, snaps []memoir.Snapshot) (*Result, error) {
	if _, err := e.DB.UpsertSnapshots(toStoreAll(snaps)); err != nil {
		log.Printf("[engine] cache snapshots: %v", err)
	}
	s, err := e.DB.RecordSearch(query, mode, store.SourceRemote, hits(snaps))
	if err != nil {
		log.Printf("[engine] record search: %v", err)
	}
	if _, err := e.EmbedMissing(ctx); err != nil {
		log.Printf("[engine] embed missing: %v", err)
	}

	res := &Result{Source: store.SourceRemote, Snapshots: snaps}
	if s != nil {
		res.SearchID = s.ID
	}
	return res, nil
}

func (e *Engine) logCached(query, mode string, snaps []memoir.Snapshot) (*Result, error) {
	res := &Result{Source: store.SourceCache, Snapshots: snaps}
	s, err := e.DB.RecordSearch(query, mode, store.SourceCache, hits(snaps))
	if err != nil {
		log.Printf("[engine] record search: %v", err)
	} else {
		res.SearchID = s.ID
	}
	return res, nil
}

func hits(snaps []memoir.Snapshot) []store.SearchHit {
	out := make([]store.SearchHit, 0, len(snaps))
	for _, s := range snaps {
		if s.MemoryID == "" {
			continue
		}
		out = append(out, store.SearchHit{MemoryID: s.MemoryID, Similarity: s.Similarity})
	}
	return out
}

// embedder returns the pinned embedder, or a TF-IDF embedder over the current
// cache with every cached snapshot embedded.
func (e *Engine) embedder(ctx context.Context) (Embedder, error) {
	e.mu.Lock()
	pinned := e.Embedder
	e.mu.Unlock()
	if pinned != nil {
		return pinned, nil
	}

	emb, err := NewTFIDFEmbedder(e.DB, 512)
	if err != nil {
		return nil, err
	}
	if _, err := e.embedAll(ctx, emb); err != nil {
		return nil, err
	}
	return emb, nil
}

// EmbedMissing embeds cached snapshots that have no vector for the pinned
// embedder's model. Without a pinned embedder there is nothing to keep warm.
func (e *Engine) EmbedMissing(ctx context.Context) (int, error) {
	e.mu.Lock()
	emb := e.Embedder
	e.mu.Unlock()
	if emb == nil {
		return 0, nil
	}
	return e.embedAll(ctx, emb)
}

func (e *Engine) embedAll(ctx context.Context, emb Embedder) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.DB.Unembedded(emb.Model())
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	vecs := make(map[string][]float64, len(pending))
	for _, s := range pending {
		vec, err := emb.Embed(ctx, s.Summary)
		if err != nil {
			log.Printf("[engine] embed %s: %v", s.MemoryID, err)
			continue
		}
		vecs[s.MemoryID] = vec
	}
	return e.DB.SaveVectors(emb.Model(), vecs)
}

// Prune drops cache entries fetched more than retention ago.
func (e *Engine) Prune(retention time.Duration) (int64, error) {
	return e.DB.PruneSnapshots(e.Now().Add(-retention))
}

// StartPruneTimer prunes the cache on startup and then daily.
func (e *Engine) StartPruneTimer(retention time.Duration) {
	if retention <= 0 {
		return
	}
	e.pruneOnce(retention)

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.pruneOnce(retention)
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) pruneOnce(retention time.Duration) {
	if removed, err := e.Prune(retention); err != nil {
		log.Printf("prune error: %v", err)
	} else if removed > 0 {
		log.Printf("prune: removed %d cached snapshots", removed)
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func toStore(s memoir.Snapshot) store.Snapshot {
	out := store.Snapshot{
		MemoryID:   s.MemoryID,
		Summary:    s.Summary,
		ImageURL:   s.ImageURL,
		Similarity: s.Similarity,
	}
	if t, ok := s.Time(); ok {
		ms := t.UnixMilli()
		out.Timestamp = &ms
	}
	return out
}

func toStoreAll(snaps []memoir.Snapshot) []store.Snapshot {
	out := make([]store.Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = toStore(s)
	}
	return out
}

func fromStore(s store.Snapshot) memoir.Snapshot {
	out := memoir.Snapshot{
		MemoryID:   s.MemoryID,
		Summary:    s.Summary,
		ImageURL:   s.ImageURL,
		Similarity: s.Similarity,
	}
	if s.Timestamp != nil {
		out.Timestamp = s.Time().UTC().Format(time.RFC3339Nano)
	}
	return out
}
