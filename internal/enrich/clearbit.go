package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autoapply/internal/logging"
	"autoapply/pkg/models"
)

// Client looks up company websites through the Clearbit autocomplete API.
// Results feed the email path: a real company domain beats one guessed from
// the company name.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger

	mu    sync.Mutex
	cache map[string]string // company name (lowercased) -> domain, "" = miss
}

type suggestion struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Logo   string `json:"logo"`
}

// NewClient creates a Clearbit enrichment client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.GetGlobalLogger(),
		cache:      make(map[string]string),
	}
}

// LookupDomain returns the website domain for a company name, or "" when the
// API has no confident suggestion.
func (c *Client) LookupDomain(ctx context.Context, company string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(company))
	if key == "" {
		return "", nil
	}

	c.mu.Lock()
	if domain, hit := c.cache[key]; hit {
		c.mu.Unlock()
		return domain, nil
	}
	c.mu.Unlock()

	endpoint := c.baseURL + "/v1/companies/suggest?query=" + url.QueryEscape(company)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("clearbit suggest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var suggestions []suggestion
	if err := json.Unmarshal(body, &suggestions); err != nil {
		return "", err
	}

	domain := ""
	for _, s := range suggestions {
		// Only trust an exact name match; the first fuzzy suggestion is
		// wrong often enough to misdirect application emails
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(company)) && s.Domain != "" {
			domain = s.Domain
			break
		}
	}

	c.mu.Lock()
	c.cache[key] = domain
	c.mu.Unlock()

	return domain, nil
}

// EnrichPostings fills CompanyWebsite on up to maxCompanies distinct
// companies. Lookup failures are logged and skipped; enrichment never fails
// a search.
func (c *Client) EnrichPostings(ctx context.Context, postings []models.Posting, maxCompanies int) {
	looked := make(map[string]string)

	for i := range postings {
		if postings[i].CompanyWebsite != "" || postings[i].Company == "" {
			continue
		}

		key := strings.ToLower(postings[i].Company)
		if domain, done := looked[key]; done {
			postings[i].CompanyWebsite = domain
			continue
		}

		if len(looked) >= maxCompanies {
			continue
		}

		domain, err := c.LookupDomain(ctx, postings[i].Company)
		if err != nil {
			c.logger.Debug("Company enrichment lookup failed", map[string]interface{}{
				"company": postings[i].Company,
				"error":   err.Error(),
			})
			domain = ""
		}
		looked[key] = domain
		postings[i].CompanyWebsite = domain
	}
}
