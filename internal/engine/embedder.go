package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lazypower/timescope/internal/store"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

const defaultVocabSize = 512

// TFIDFEmbedder generates TF-IDF bag-of-words embeddings over the cached
// snapshot summaries. It needs no network, so offline search always works.
type TFIDFEmbedder struct {
	vocab []string // most frequent terms first
	idf   map[string]float64
	dims  int
	model string
}

// NewTFIDFEmbedder builds a TF-IDF embedder from the cached snapshot summaries.
func NewTFIDFEmbedder(db *store.DB, maxTerms int) (*TFIDFEmbedder, error) {
	snaps, err := db.ListSnapshots(0)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for tfidf: %w", err)
	}

	var docs []string
	for _, s := range snaps {
		if s.Summary != "" {
			docs = append(docs, s.Summary)
		}
	}
	return newTFIDF(docs, maxTerms), nil
}

// termStat is a vocabulary candidate and the number of summaries it occurs in.
type termStat struct {
	term string
	df   int
}

func newTFIDF(docs []string, maxTerms int) *TFIDFEmbedder {
	if maxTerms <= 0 {
		maxTerms = defaultVocabSize
	}

	df := make(map[string]int)
	for _, doc := range docs {
		for term := range termCounts(doc) {
			df[term]++
		}
	}

	stats := make([]termStat, 0, len(df))
	for term, n := range df {
		stats = append(stats, termStat{term, n})
	}
	// Ties sort alphabetically so the same corpus always yields the same vocabulary.
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].df != stats[j].df {
			return stats[i].df > stats[j].df
		}
		return stats[i].term < stats[j].term
	})
	if len(stats) > maxTerms {
		stats = stats[:maxTerms]
	}

	n := float64(max(1, len(docs)))
	emb := &TFIDFEmbedder{
		vocab: make([]string, max(1, len(stats))),
		idf:   make(map[string]float64, len(stats)),
	}
	emb.dims = len(emb.vocab)

	h := fnv.New32a()
	for i, st := range stats {
		emb.vocab[i] = st.term
		emb.idf[st.term] = math.Log(n/float64(st.df)) + 1
		fmt.Fprintf(h, "%s:%d;", st.term, st.df)
	}
	fmt.Fprintf(h, "n=%d", len(docs))
	emb.model = fmt.Sprintf("tfidf:%08x", h.Sum32())
	return emb
}

// Model identifies the vocabulary. Vectors are only comparable between
// embedders that report the same model.
func (t *TFIDFEmbedder) Model() string   { return t.model }
func (t *TFIDFEmbedder) Dimensions() int { return t.dims }

// Embed returns the unit-length TF-IDF vector of text. Term frequency is
// dampened logarithmically so a long summary repeating one word does not
// drown out the rest.
func (t *TFIDFEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, t.dims)
	counts := termCounts(text)
	if len(counts) == 0 {
		return vec, nil
	}
	for i, term := range t.vocab {
		if c := counts[term]; c > 0 {
			vec[i] = (1 + math.Log(float64(c))) * t.idf[term]
		}
	}
	normalize(vec)
	return vec, nil
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}
	return counts
}

// stopwords are dropped before weighting; they appear in nearly every summary.
var stopwords = map[string]bool{
	"an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "that": true, "the": true, "then": true,
	"this": true, "to": true, "was": true, "with": true,
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, hyphen or underscore. Single-rune tokens and stopwords are dropped.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	tokens := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || stopwords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// normalize performs in-place L2 normalization.
func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
