package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autoapply/pkg/models"
)

const remotiveDefaultBaseURL = "https://remotive.com"

// Remotive supports server-side search and a result limit.
type Remotive struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	maxResults int
}

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID              json.Number `json:"id"`
	URL             string      `json:"url"`
	Title           string      `json:"title"`
	CompanyName     string      `json:"company_name"`
	Location        string      `json:"candidate_required_location"`
	Salary          string      `json:"salary"`
	Description     string      `json:"description"`
	PublicationDate string      `json:"publication_date"`
	Tags            []string    `json:"tags"`
}

// NewRemotive creates the Remotive adapter
func NewRemotive(opts Options) *Remotive {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = remotiveDefaultBaseURL
	}
	return &Remotive{
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		client:     &http.Client{Timeout: opts.timeout()},
		limiter:    opts.limiter(),
		maxResults: opts.maxResults(),
	}
}

func (s *Remotive) Name() string {
	return string(models.SourceRemotive)
}

func (s *Remotive) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	query := url.Values{}
	query.Set("search", strings.Join(criteria.Keywords, " "))
	query.Set("limit", strconv.Itoa(s.maxResults))

	body, err := fetch(ctx, s.client, s.baseURL+"/api/remote-jobs?"+query.Encode(), s.userAgent)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	var resp remotiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	keywords := ExpandKeywords(criteria.Keywords)
	postings := make([]models.Posting, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		if job.ID.String() == "" || job.Title == "" {
			continue
		}

		posting := models.Posting{
			ExternalID:  job.ID.String(),
			Source:      models.SourceRemotive,
			Title:       job.Title,
			Company:     job.CompanyName,
			Location:    job.Location,
			Description: job.Description,
			Tags:        job.Tags,
			URL:         job.URL,
			Salary:      job.Salary,
			Remote:      true,
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", job.PublicationDate); err == nil {
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
