package sources

import (
	"strings"

	"autoapply/pkg/models"
)

// matchesCriteria applies the client-side filters that upstream APIs cannot:
// keyword presence, remote-only, and location substring.
func matchesCriteria(p *models.Posting, criteria models.SearchCriteria, keywords []string) bool {
	if criteria.RemoteOnly && !p.Remote {
		return false
	}

	if criteria.Location != "" && p.Location != "" {
		if !strings.Contains(strings.ToLower(p.Location), strings.ToLower(criteria.Location)) && !p.Remote {
			return false
		}
	}

	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(p.Title + " " + strings.Join(p.Tags, " ") + " " + p.Description)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
