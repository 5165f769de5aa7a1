package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autoapply/pkg/models"
)

const arbeitnowDefaultBaseURL = "https://www.arbeitnow.com"

// Arbeitnow exposes a paged job-board API with server-side search.
type Arbeitnow struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	maxResults int
}

type arbeitnowResponse struct {
	Data []arbeitnowJob `json:"data"`
}

type arbeitnowJob struct {
	Slug        string   `json:"slug"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remote      bool     `json:"remote"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	CreatedAt   int64    `json:"created_at"`
}

// NewArbeitnow creates the Arbeitnow adapter
func NewArbeitnow(opts Options) *Arbeitnow {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = arbeitnowDefaultBaseURL
	}
	return &Arbeitnow{
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		client:     &http.Client{Timeout: opts.timeout()},
		limiter:    opts.limiter(),
		maxResults: opts.maxResults(),
	}
}

func (s *Arbeitnow) Name() string {
	return string(models.SourceArbeitnow)
}

func (s *Arbeitnow) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	query := url.Values{}
	query.Set("search", strings.Join(criteria.Keywords, " "))
	query.Set("page", "1")

	body, err := fetch(ctx, s.client, s.baseURL+"/api/job-board-api?"+query.Encode(), s.userAgent)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	var resp arbeitnowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	keywords := ExpandKeywords(criteria.Keywords)
	postings := make([]models.Posting, 0, len(resp.Data))
	for _, job := range resp.Data {
		if job.Slug == "" || job.Title == "" {
			continue
		}

		posting := models.Posting{
			ExternalID:  job.Slug,
			Source:      models.SourceArbeitnow,
			Title:       job.Title,
			Company:     job.CompanyName,
			Location:    job.Location,
			Description: job.Description,
			Tags:        job.Tags,
			URL:         job.URL,
			Remote:      job.Remote,
		}
		if job.CreatedAt > 0 {
			ts := time.Unix(job.CreatedAt, 0).UTC()
			posting.PostedAt = &ts
		}

		if !matchesCriteria(&posting, criteria, keywords) {
			continue
		}

		postings = append(postings, posting)
		if len(postings) >= s.maxResults {
			break
		}
	}

	return postings, nil
}
