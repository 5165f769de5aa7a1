package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// JobSource identifies the job board a posting was fetched from.
type JobSource string

const (
	SourceRemoteOK       JobSource = "remoteok"
	SourceArbeitnow      JobSource = "arbeitnow"
	SourceRemotive       JobSource = "remotive"
	SourceWeWorkRemotely JobSource = "weworkremotely"
)

// Posting is a normalized job posting as returned by a source adapter
type Posting struct {
	ExternalID     string     `json:"external_id"`
	Source         JobSource  `json:"source"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location,omitempty"`
	Description    string     `json:"description,omitempty"`
	URL            string     `json:"url"`
	ApplicationURL string     `json:"application_url,omitempty"`
	CompanyWebsite string     `json:"company_website,omitempty"`
	ContactEmail   string     `json:"contact_email,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Remote         bool       `json:"remote"`
	Salary         string     `json:"salary,omitempty"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	MatchScore     float64    `json:"match_score,omitempty"`
}

// ID returns the stable identifier for a posting, unique across sources.
func (p *Posting) ID() string {
	return string(p.Source) + ":" + p.ExternalID
}

// DedupKey collapses the same role advertised on multiple boards into one
// key. Title, company and location are lowercased and whitespace-squeezed
// before hashing so cosmetic differences between boards do not defeat
// deduplication.
func (p *Posting) DedupKey() string {
	h := fnv.New64a()
	h.Write([]byte(normalizeField(p.Title)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeField(p.Company)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeField(p.Location)))
	return fmt.Sprintf("%016x", h.Sum64())
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// RankedPosting pairs a posting with its match score against a profile.
type RankedPosting struct {
	Posting    Posting `json:"posting"`
	MatchScore float64 `json:"match_score"`
}
