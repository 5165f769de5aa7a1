package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autoapply/internal/enrich"
	"autoapply/internal/logging"
	"autoapply/internal/sources"
	"autoapply/pkg/models"
)

// SourceFailure reports one source that could not contribute to a search.
type SourceFailure struct {
	Source string
	Err    error
}

// Result is the merged outcome of a fan-out search.
type Result struct {
	Postings []models.Posting
	Failures []SourceFailure
}

// Aggregator fans a search out over the registered sources concurrently and
// merges the results. A failing source degrades the search instead of
// failing it; only zero healthy sources is an error.
type Aggregator struct {
	registry      *sources.Registry
	enricher      *enrich.Client
	sourceTimeout time.Duration
	maxCompanies  int
	logger        logging.Logger
}

// New creates an aggregator over the given source registry. The enricher is
// optional; pass nil to skip company-website enrichment.
func New(registry *sources.Registry, enricher *enrich.Client, sourceTimeout time.Duration, maxCompanies int) *Aggregator {
	if sourceTimeout <= 0 {
		sourceTimeout = 15 * time.Second
	}
	return &Aggregator{
		registry:      registry,
		enricher:      enricher,
		sourceTimeout: sourceTimeout,
		maxCompanies:  maxCompanies,
		logger:        logging.GetGlobalLogger(),
	}
}

// Aggregate runs the search across the requested sources. Merge order is
// source registration order, then upstream order within a source, so repeat
// searches are stable. Duplicates across boards collapse onto the first
// occurrence; the merged list is truncated to criteria.Limit.
func (a *Aggregator) Aggregate(ctx context.Context, criteria models.SearchCriteria) (*Result, error) {
	selected, err := a.registry.Resolve(criteria.Sources)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no sources registered")
	}

	type sourceResult struct {
		postings []models.Posting
		err      error
	}

	results := make([]sourceResult, len(selected))
	var wg sync.WaitGroup

	for i, src := range selected {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			// A panicking adapter counts as a failed source, not a crashed
			// search
			defer func() {
				if r := recover(); r != nil {
					results[i].err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
				}
			}()

			srcCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			postings, err := src.Search(srcCtx, criteria)
			results[i] = sourceResult{postings: postings, err: err}
		}(i, src)
	}

	wg.Wait()

	result := &Result{}
	seen := make(map[string]bool)

	for i, src := range selected {
		if results[i].err != nil {
			a.logger.Warn("Source search failed", map[string]interface{}{
				"source": src.Name(),
				"error":  results[i].err.Error(),
			})
			result.Failures = append(result.Failures, SourceFailure{
				Source: src.Name(),
				Err:    results[i].err,
			})
			continue
		}

		for _, posting := range results[i].postings {
			key := posting.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Postings = append(result.Postings, posting)
		}
	}

	if len(result.Failures) == len(selected) {
		return nil, fmt.Errorf("all %d sources failed", len(selected))
	}

	if criteria.Limit > 0 && len(result.Postings) > criteria.Limit {
		result.Postings = result.Postings[:criteria.Limit]
	}

	if a.enricher != nil {
		a.enricher.EnrichPostings(ctx, result.Postings, a.maxCompanies)
	}

	a.logger.Debug("Search aggregation complete", map[string]interface{}{
		"sources":  len(selected),
		"failures": len(result.Failures),
		"postings": len(result.Postings),
	})

	return result, nil
}
