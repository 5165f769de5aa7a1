package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"autoapply/pkg/models"
)

const remoteOKDefaultBaseURL = "https://remoteok.com"

// RemoteOK serves its whole board from a single JSON endpoint, so keyword
// filtering happens client-side.
type RemoteOK struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	maxResults int
}

type remoteOKJob struct {
	ID          json.Number `json:"id"`
	Slug        string      `json:"slug"`
	Position    string      `json:"position"`
	Company     string      `json:"company"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	URL         string      `json:"url"`
	ApplyURL    string      `json:"apply_url"`
	Date        string      `json:"date"`
}

// NewRemoteOK creates the RemoteOK adapter
func NewRemoteOK(opts Options) *RemoteOK {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = remoteOKDefaultBaseURL
	}
	return &RemoteOK{
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		client:     &http.Client{Timeout: opts.timeout()},
		limiter:    opts.limiter(),
		maxResults: opts.maxResults(),
	}
}

func (s *RemoteOK) Name() string {
	return string(models.SourceRemoteOK)
}

func (s *RemoteOK) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	body, err := fetch(ctx, s.client, s.baseURL+"/api", s.userAgent)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	var jobs []remoteOKJob
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	keywords := ExpandKeywords(criteria.Keywords)
	postings := make([]models.Posting, 0, s.maxResults)
	for _, job := range jobs {
		// The first array element is a legal notice without an id
		if job.ID.String() == "" || job.Position == "" {
			continue
		}

		posting := models.Posting{
			ExternalID:     job.ID.String(),
			Source:         models.SourceRemoteOK,
			Title:          job.Position,
			Company:        job.Company,
			Location:       job.Location,
			Description:    job.Description,
			Tags:           job.Tags,
			URL:            job.URL,
			ApplicationURL: job.ApplyURL,
			Remote:         true,
		}
		if ts, err := time.Parse(time.RFC3339, job.Date); err == nil {
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
