package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"autoapply/internal/sources"
	"autoapply/pkg/models"
)

type fakeSource struct {
	name     string
	postings []models.Posting
	err      error
	panics   bool
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error) {
	if s.panics {
		panic("adapter bug")
	}
	return s.postings, s.err
}

func makePostings(source string, n int, offset int) []models.Posting {
	out := make([]models.Posting, n)
	for i := 0; i < n; i++ {
		out[i] = models.Posting{
			ExternalID: fmt.Sprintf("%d", i+offset),
			Source:     models.JobSource(source),
			Title:      fmt.Sprintf("Engineer %d", i+offset),
			Company:    fmt.Sprintf("Company %d", i+offset),
			Location:   "Remote",
		}
	}
	return out
}

func newRegistry(t *testing.T, srcs ...sources.Source) *sources.Registry {
	t.Helper()
	registry := sources.NewRegistry()
	for _, s := range srcs {
		if err := registry.Register(s); err != nil {
			t.Fatalf("Register(%s): %v", s.Name(), err)
		}
	}
	return registry
}

func TestAggregateMergesDedupesAndBounds(t *testing.T) {
	// Source b repeats 5 of a's postings (same title/company/location, its
	// own external ids), so the merged total is 20+15+20-5 = 50; limit 40
	// keeps the first 40 in merge order.
	a := &fakeSource{name: "a", postings: makePostings("a", 20, 0)}
	dupes := makePostings("b", 5, 0)
	for i := range dupes {
		dupes[i].ExternalID = fmt.Sprintf("b-%d", i)
	}
	b := &fakeSource{name: "b", postings: append(dupes, makePostings("b", 10, 100)...)}
	c := &fakeSource{name: "c", postings: makePostings("c", 20, 200)}

	agg := New(newRegistry(t, a, b, c), nil, 0, 0)

	result, err := agg.Aggregate(context.Background(), models.SearchCriteria{
		Keywords: []string{"engineer"},
		Limit:    40,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(result.Postings) != 40 {
		t.Fatalf("got %d postings, want 40", len(result.Postings))
	}
	if len(result.Failures) != 0 {
		t.Errorf("got %d failures, want 0", len(result.Failures))
	}

	// First 20 come from source a in its own order
	for i := 0; i < 20; i++ {
		if result.Postings[i].Source != "a" {
			t.Fatalf("posting %d from %q, want a", i, result.Postings[i].Source)
		}
	}
	// The 5 duplicated roles kept the source-a copy
	for _, p := range result.Postings {
		if p.Source == "b" && p.Title == "Engineer 0" {
			t.Error("duplicate from source b survived dedup")
		}
	}
	// b contributes only its 10 unique postings before c starts
	if result.Postings[20].Source != "b" || result.Postings[20].ExternalID != "100" {
		t.Errorf("posting 20 = %s:%s, want b:100", result.Postings[20].Source, result.Postings[20].ExternalID)
	}
	if result.Postings[30].Source != "c" {
		t.Errorf("posting 30 from %q, want c", result.Postings[30].Source)
	}
}

func TestAggregatePartialFailure(t *testing.T) {
	healthy := &fakeSource{name: "healthy", postings: makePostings("healthy", 3, 0)}
	broken := &fakeSource{name: "broken", err: errors.New("upstream 503")}
	panicky := &fakeSource{name: "panicky", panics: true}

	agg := New(newRegistry(t, healthy, broken, panicky), nil, 0, 0)

	result, err := agg.Aggregate(context.Background(), models.SearchCriteria{
		Keywords: []string{"engineer"},
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(result.Postings) != 3 {
		t.Errorf("got %d postings, want 3", len(result.Postings))
	}
	if len(result.Failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(result.Failures))
	}

	bySource := map[string]error{}
	for _, f := range result.Failures {
		bySource[f.Source] = f.Err
	}
	if bySource["broken"] == nil {
		t.Error("missing failure for broken source")
	}
	if bySource["panicky"] == nil {
		t.Error("missing failure for panicky source")
	}
}

func TestAggregateAllSourcesFailed(t *testing.T) {
	agg := New(newRegistry(t,
		&fakeSource{name: "x", err: errors.New("down")},
		&fakeSource{name: "y", err: errors.New("down")},
	), nil, 0, 0)

	if _, err := agg.Aggregate(context.Background(), models.SearchCriteria{Keywords: []string{"go"}}); err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestAggregateUnknownSource(t *testing.T) {
	agg := New(newRegistry(t, &fakeSource{name: "a"}), nil, 0, 0)

	_, err := agg.Aggregate(context.Background(), models.SearchCriteria{
		Keywords: []string{"go"},
		Sources:  []string{"nope"},
	})
	if err == nil {
		t.Fatal("expected error for unknown source name")
	}
}
