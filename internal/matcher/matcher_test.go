package matcher

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"autoapply/pkg/models"
)

// stubEmbedder returns canned vectors: index 0 is the profile, the rest are
// postings in input order.
type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(texts) != len(s.vectors) {
		return nil, errors.New("unexpected batch size")
	}
	return s.vectors, nil
}

func TestRankOrdersByScore(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{1, 0},   // profile
		{0.6, 8}, // weak match
		{1, 0},   // perfect match
		{1, 1},   // middling match
	}}

	m := New(embedder, 0)
	postings := []models.Posting{
		{ExternalID: "weak", Title: "Accountant"},
		{ExternalID: "perfect", Title: "Go Engineer"},
		{ExternalID: "mid", Title: "Platform Engineer"},
	}

	ranked, err := m.Rank(context.Background(), &models.Profile{Skills: []string{"go"}}, nil, postings)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	gotOrder := []string{ranked[0].Posting.ExternalID, ranked[1].Posting.ExternalID, ranked[2].Posting.ExternalID}
	if gotOrder[0] != "perfect" || gotOrder[1] != "mid" || gotOrder[2] != "weak" {
		t.Errorf("order = %v, want [perfect mid weak]", gotOrder)
	}

	if ranked[0].MatchScore != 100 {
		t.Errorf("perfect match score = %v, want 100", ranked[0].MatchScore)
	}
	if ranked[2].MatchScore >= ranked[1].MatchScore {
		t.Errorf("scores not descending: %v >= %v", ranked[2].MatchScore, ranked[1].MatchScore)
	}
}

func TestRankStableOnTies(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{1, 0},
		{1, 0},
		{1, 0},
		{1, 0},
	}}

	m := New(embedder, 0)
	postings := []models.Posting{
		{ExternalID: "first"},
		{ExternalID: "second"},
		{ExternalID: "third"},
	}

	ranked, err := m.Rank(context.Background(), &models.Profile{}, nil, postings)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	got := []string{ranked[0].Posting.ExternalID, ranked[1].Posting.ExternalID, ranked[2].Posting.ExternalID}
	if !reflect.DeepEqual(got, []string{"first", "second", "third"}) {
		t.Errorf("tied postings reordered: %v", got)
	}
}

func TestRankKeywordBonus(t *testing.T) {
	// Identical semantic vectors; only the keyword bonus differs
	embedder := &stubEmbedder{vectors: [][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
	}}

	m := New(embedder, 25)
	postings := []models.Posting{
		{ExternalID: "plain", Title: "Staff Accountant"},
		{ExternalID: "hit", Title: "Senior Go Engineer"},
	}

	ranked, err := m.Rank(context.Background(), &models.Profile{}, []string{"go", "engineer"}, postings)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if ranked[0].Posting.ExternalID != "hit" {
		t.Fatalf("keyword hit not ranked first: %v", ranked[0].Posting.ExternalID)
	}
	// Both keywords present: full 25-point bonus on a 0 semantic base
	if ranked[0].MatchScore != 25 {
		t.Errorf("score = %v, want 25", ranked[0].MatchScore)
	}
	if ranked[1].MatchScore != 0 {
		t.Errorf("plain score = %v, want 0", ranked[1].MatchScore)
	}
}

func TestRankNegativeSimilarityClampsToZero(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{1, 0},
		{-1, 0},
	}}

	m := New(embedder, 0)
	ranked, err := m.Rank(context.Background(), &models.Profile{}, nil, []models.Posting{{ExternalID: "opposite"}})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if ranked[0].MatchScore != 0 {
		t.Errorf("score = %v, want 0 for negative similarity", ranked[0].MatchScore)
	}
}

func TestRankEmptyPostings(t *testing.T) {
	m := New(&stubEmbedder{}, 25)
	ranked, err := m.Rank(context.Background(), &models.Profile{}, nil, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d results, want 0", len(ranked))
	}
}

func TestRankEmbedderError(t *testing.T) {
	m := New(&stubEmbedder{err: errors.New("quota exceeded")}, 25)
	if _, err := m.Rank(context.Background(), &models.Profile{}, nil, []models.Posting{{}}); err == nil {
		t.Fatal("expected error from failing embedder")
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder()

	first, err := e.Embed(context.Background(), []string{"go engineer remote", "python developer"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := e.Embed(context.Background(), []string{"go engineer remote", "python developer"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("local embedder is not deterministic")
	}

	// Overlapping vocabulary scores higher than disjoint vocabulary
	vecs, err := e.Embed(context.Background(), []string{
		"go engineer distributed systems",
		"go engineer backend systems",
		"pastry chef baking croissants",
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	similar := cosineSimilarity(vecs[0], vecs[1])
	dissimilar := cosineSimilarity(vecs[0], vecs[2])
	if similar <= dissimilar {
		t.Errorf("similarity ordering wrong: similar=%v dissimilar=%v", similar, dissimilar)
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Build <b>Go</b> services.</p><ul><li>gRPC</li></ul>")
	if got != "Build Go services. gRPC" {
		t.Errorf("stripHTML = %q", got)
	}
	if got := stripHTML("plain text stays"); got != "plain text stays" {
		t.Errorf("plain text changed: %q", got)
	}
}
