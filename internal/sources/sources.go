package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"autoapply/pkg/models"
)

// Source is a job board adapter. Implementations translate SearchCriteria
// into whatever the upstream API understands and hand back normalized
// postings. Adapters never write to shared state.
type Source interface {
	// Name returns the unique registry name of the source
	Name() string

	// Search fetches postings matching the criteria. The returned slice is
	// ordered the way the upstream returned them.
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error)
}

// SourceError wraps a failure of a single source adapter so the aggregator
// can report which board degraded without failing the whole search.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Options configures a source adapter. Zero values fall back to the
// adapter's defaults; BaseURL overrides exist as a test seam and for proxies.
type Options struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration // minimum spacing between upstream requests
	MaxResults  int
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 15 * time.Second
	}
	return o.Timeout
}

func (o Options) limiter() *rate.Limiter {
	interval := o.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (o Options) maxResults() int {
	if o.MaxResults <= 0 {
		return 100
	}
	return o.MaxResults
}

// Registry holds the registered sources in priority order. Registration
// order decides merge order in the aggregator.
type Registry struct {
	order   []string
	sources map[string]Source
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source. Registering the same name twice is an error.
func (r *Registry) Register(s Source) error {
	name := s.Name()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}
	r.order = append(r.order, name)
	r.sources[name] = s
	return nil
}

// All returns every registered source in registration order
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

// Resolve maps the requested source names to sources, preserving registry
// order. An empty list or the single entry "all" selects every source.
// Unknown names are an error so typos fail the search loudly.
func (r *Registry) Resolve(names []string) ([]Source, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return r.All(), nil
	}

	requested := make(map[string]bool, len(names))
	for _, name := range names {
		if _, exists := r.sources[name]; !exists {
			return nil, fmt.Errorf("unknown source: %s", name)
		}
		requested[name] = true
	}

	out := make([]Source, 0, len(requested))
	for _, name := range r.order {
		if requested[name] {
			out = append(out, r.sources[name])
		}
	}
	return out, nil
}

// fetch performs a GET request with the adapter's user agent and returns the
// response body. Non-2xx responses are errors.
func fetch(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
