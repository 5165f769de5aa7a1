package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"autoapply/pkg/models"
)

func TestLookupDomain(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/companies/suggest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("query") {
		case "Acme":
			w.Write([]byte(`[{"name":"Acme","domain":"acme.io"},{"name":"Acme Labs","domain":"acmelabs.com"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	domain, err := client.LookupDomain(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("LookupDomain: %v", err)
	}
	if domain != "acme.io" {
		t.Errorf("domain = %q, want acme.io", domain)
	}

	// Second lookup hits the cache
	if _, err := client.LookupDomain(context.Background(), "acme"); err != nil {
		t.Fatalf("cached LookupDomain: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("upstream called %d times, want 1", calls)
	}

	// Fuzzy-only suggestions are rejected
	domain, err = client.LookupDomain(context.Background(), "Unknown Co")
	if err != nil {
		t.Fatalf("LookupDomain miss: %v", err)
	}
	if domain != "" {
		t.Errorf("domain = %q, want empty for no exact match", domain)
	}
}

func TestEnrichPostingsBoundsLookups(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		query := r.URL.Query().Get("query")
		w.Write([]byte(`[{"name":"` + query + `","domain":"` + query + `.example.com"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	postings := []models.Posting{
		{Company: "alpha"},
		{Company: "beta"},
		{Company: "alpha"}, // repeated company reuses the first lookup
		{Company: "gamma"}, // over the budget, left unenriched
	}

	client.EnrichPostings(context.Background(), postings, 2)

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("upstream called %d times, want 2", calls)
	}
	if postings[0].CompanyWebsite != "alpha.example.com" {
		t.Errorf("postings[0] website = %q", postings[0].CompanyWebsite)
	}
	if postings[2].CompanyWebsite != "alpha.example.com" {
		t.Errorf("postings[2] website = %q, want cached value", postings[2].CompanyWebsite)
	}
	if postings[3].CompanyWebsite != "" {
		t.Errorf("postings[3] website = %q, want empty (over budget)", postings[3].CompanyWebsite)
	}
}
