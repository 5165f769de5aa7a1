package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"autoapply/pkg/models"
)

const wwrFixture = `<html><body>
<section class="jobs">
  <ul>
    <li class="feature">
      <a href="/remote-jobs/acme-senior-backend-engineer">
        <span class="title">Senior Backend Engineer</span>
        <span class="company">Acme</span>
        <span class="region">Anywhere in the World</span>
      </a>
    </li>
    <li>
      <a href="/remote-jobs/adco-growth-marketer">
        <span class="title">Growth Marketer</span>
        <span class="company">AdCo</span>
        <span class="region">USA Only</span>
      </a>
    </li>
    <li class="view-all"><a href="/categories/remote-programming-jobs">View all</a></li>
  </ul>
</section>
</body></html>`

func TestWeWorkRemotelySearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote-jobs/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("term"); got != "backend engineer" {
			t.Errorf("term = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(wwrFixture))
	}))
	defer server.Close()

	source := NewWeWorkRemotely(Options{BaseURL: server.URL, MinInterval: 1})

	postings, err := source.Search(context.Background(), models.SearchCriteria{
		Keywords: []string{"backend", "engineer"},
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(postings) != 1 {
		t.Fatalf("got %d postings, want 1", len(postings))
	}

	p := postings[0]
	if p.ExternalID != "acme-senior-backend-engineer" {
		t.Errorf("external id = %q", p.ExternalID)
	}
	if p.Title != "Senior Backend Engineer" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Company != "Acme" {
		t.Errorf("company = %q", p.Company)
	}
	if p.URL != server.URL+"/remote-jobs/acme-senior-backend-engineer" {
		t.Errorf("url = %q", p.URL)
	}
	if p.Location != "Anywhere in the World" {
		t.Errorf("location = %q", p.Location)
	}
}

func TestWeWorkRemotelySearchEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><section class="jobs"><ul></ul></section></body></html>`))
	}))
	defer server.Close()

	source := NewWeWorkRemotely(Options{BaseURL: server.URL, MinInterval: 1})

	postings, err := source.Search(context.Background(), models.SearchCriteria{Keywords: []string{"go"}})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(postings) != 0 {
		t.Errorf("got %d postings, want 0", len(postings))
	}
}
