package sources

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"autoapply/pkg/models"
)

const wwrDefaultBaseURL = "https://weworkremotely.com"

// WeWorkRemotely has no JSON API, so the search results page is parsed
// with goquery.
type WeWorkRemotely struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	maxResults int
}

// NewWeWorkRemotely creates the WeWorkRemotely adapter
func NewWeWorkRemotely(opts Options) *WeWorkRemotely {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = wwrDefaultBaseURL
	}
	return &WeWorkRemotely{
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		client:     &http.Client{Timeout: opts.timeout()},
		limiter:    opts.limiter(),
		maxResults: opts.maxResults(),
	}
}

func (s *WeWorkRemotely) Name() string {
	return string(models.SourceWeWorkRemotely)
}

func (s *WeWorkRemotely) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Posting, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	query := url.Values{}
	query.Set("term", strings.Join(criteria.Keywords, " "))

	body, err := fetch(ctx, s.client, s.baseURL+"/remote-jobs/search?"+query.Encode(), s.userAgent)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	keywords := ExpandKeywords(criteria.Keywords)
	var postings []models.Posting

	doc.Find("section.jobs li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("span.title").First().Text())
		company := strings.TrimSpace(sel.Find("span.company").First().Text())
		if title == "" || company == "" {
			return true
		}

		href := ""
		sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if h, ok := a.Attr("href"); ok && strings.HasPrefix(h, "/remote-jobs/") {
				href = h
				return false
			}
			return true
		})
		if href == "" {
			return true
		}

		// Listing URLs look like /remote-jobs/<company>-<role>; the slug is
		// the stable external id
		slug := strings.TrimPrefix(href, "/remote-jobs/")
		slug = strings.TrimSuffix(slug, "/")
		if slug == "" {
			return true
		}

		region := strings.TrimSpace(sel.Find("span.region").First().Text())

		posting := models.Posting{
			ExternalID: slug,
			Source:     models.SourceWeWorkRemotely,
			Title:      title,
			Company:    company,
			Location:   region,
			URL:        s.baseURL + href,
			Remote:     true,
		}

		if !matchesCriteria(&posting, criteria, keywords) {
			return true
		}

		postings = append(postings, posting)
		return len(postings) < s.maxResults
	})

	return postings, nil
}
