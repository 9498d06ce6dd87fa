package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lazypower/timescope/internal/store"
)

// Defaults mirror the memoir server's own.
const (
	DefaultK         = 30
	DefaultThreshold = 0.5
)

// SearchOpts controls search behavior.
type SearchOpts struct {
	K         int      // max results (default 30)
	Threshold *float64 // minimum similarity (default 0.5)
	Start     time.Time
	End       time.Time
}

func (o SearchOpts) k() int {
	if o.K <= 0 {
		return DefaultK
	}
	return o.K
}

func (o SearchOpts) threshold() float64 {
	if o.Threshold == nil {
		return DefaultThreshold
	}
	return *o.Threshold
}

// inWindow reports whether a cached snapshot passes the optional time filter.
// Snapshots without a timestamp only pass when no filter is set.
func (o SearchOpts) inWindow(s store.Snapshot) bool {
	if o.Start.IsZero() && o.End.IsZero() {
		return true
	}
	if s.Timestamp == nil {
		return false
	}
	t := s.Time()
	if !o.Start.IsZero() && t.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && t.After(o.End) {
		return false
	}
	return true
}

// Match is a cached snapshot scored against a query.
type Match struct {
	Snapshot   store.Snapshot
	Similarity float64
}

// Find performs vector search over the cached snapshots embedded with the
// embedder's model. Matches below the threshold or outside the time window are
// dropped; the rest are sorted by similarity and capped at K.
func Find(ctx context.Context, db *store.DB, embedder Embedder, query string, opts SearchOpts) ([]Match, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectors, err := db.AllVectors(embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	threshold := opts.threshold()
	var matches []Match
	for _, v := range vectors {
		similarity := CosineSimilarity(queryVec, v.Embedding)
		if similarity <= 0 || similarity < threshold {
			continue
		}
		snap, err := db.GetSnapshot(v.MemoryID)
		if err != nil {
			return nil, fmt.Errorf("get snapshot %s: %w", v.MemoryID, err)
		}
		if snap == nil || !opts.inWindow(*snap) {
			continue
		}
		matches = append(matches, Match{Snapshot: *snap, Similarity: similarity})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Snapshot.MemoryID < matches[j].Snapshot.MemoryID
	})

	if k := opts.k(); len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
