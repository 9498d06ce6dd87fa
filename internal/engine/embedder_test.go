package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/lazypower/timescope/internal/store"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Hello World", 2},
		{"Reviewed the pull-request, then lunch.", 3}, // stopwords dropped
		{"a b c", 0}, // single chars skipped
		{"Slack DM from ops_team", 3},
		{"Café crème brûlée", 3},
		{"", 0},
	}

	for _, tt := range tests {
		tokens := tokenize(tt.input)
		if len(tokens) != tt.want {
			t.Errorf("tokenize(%q) = %d tokens %v, want %d", tt.input, len(tokens), tokens, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	vec := []float64{3, 4}
	normalize(vec)

	norm := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
	if math.Abs(norm-1) > 1e-10 {
		t.Errorf("normalized magnitude = %f, want 1", norm)
	}
}

func TestNormalizeZero(t *testing.T) {
	vec := []float64{0, 0, 0}
	normalize(vec)
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"mismatched lengths", []float64{1}, []float64{1, 2}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-10 {
			t.Errorf("%s: similarity = %f, want %f", tt.name, got, tt.want)
		}
	}
}

func TestTFIDFEmbedder(t *testing.T) {
	db := testDB(t)
	seedTestSnapshots(t, db)

	emb, err := NewTFIDFEmbedder(db, 512)
	if err != nil {
		t.Fatalf("NewTFIDFEmbedder: %v", err)
	}
	if !strings.HasPrefix(emb.Model(), "tfidf:") {
		t.Errorf("Model() = %q, want tfidf: prefix", emb.Model())
	}
	if emb.Dimensions() == 0 {
		t.Fatal("Dimensions() = 0")
	}

	ctx := context.Background()
	vec, err := emb.Embed(ctx, "SQLite WAL mode")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != emb.Dimensions() {
		t.Errorf("len(vec) = %d, want %d", len(vec), emb.Dimensions())
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("vector magnitude = %f, want 1", math.Sqrt(norm))
	}

	related, _ := emb.Embed(ctx, "SQLite concurrent write WAL journal")
	unrelated, _ := emb.Embed(ctx, "zoomable timeline screen memories")
	if CosineSimilarity(vec, related) <= CosineSimilarity(vec, unrelated) {
		t.Error("related text should score higher than unrelated text")
	}
}

func TestTFIDFModelTracksVocabulary(t *testing.T) {
	a := newTFIDF([]string{"standup notes", "lunch downtown"}, 0)
	b := newTFIDF([]string{"lunch downtown", "standup notes"}, 0)
	if a.Model() != b.Model() {
		t.Errorf("same corpus gave models %q and %q", a.Model(), b.Model())
	}

	c := newTFIDF([]string{"standup notes", "lunch downtown", "code review"}, 0)
	if a.Model() == c.Model() {
		t.Error("a grown corpus should change the model")
	}
}

func TestTFIDFEmpty(t *testing.T) {
	emb, err := NewTFIDFEmbedder(testDB(t), 0)
	if err != nil {
		t.Fatalf("NewTFIDFEmbedder: %v", err)
	}
	if emb.Dimensions() != 1 {
		t.Errorf("Dimensions() = %d, want 1", emb.Dimensions())
	}
	vec, err := emb.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1 || vec[0] != 0 {
		t.Errorf("vec = %v, want [0]", vec)
	}
}

func TestTFIDFSkipsEmptySummaries(t *testing.T) {
	db := testDB(t)
	db.UpsertSnapshots([]store.Snapshot{
		{MemoryID: "blank"},
		{MemoryID: "full", Summary: "planning meeting"},
	})
	emb, _ := NewTFIDFEmbedder(db, 0)
	if emb.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d, want 2", emb.Dimensions())
	}
}
