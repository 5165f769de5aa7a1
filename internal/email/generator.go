package email

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// Confidence grades how likely the derived address is to reach a human.
type Confidence string

const (
	// ConfidenceHigh means the address came from the posting itself or from
	// an enriched company website
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow means the domain was guessed from the company name
	ConfidenceLow Confidence = "low"
)

// Message is a ready-to-send application email.
type Message struct {
	To         string
	Subject    string
	Body       string
	Confidence Confidence
}

// jobBoardDomains never receive application email; a posting "website" on
// one of these is the listing, not the employer.
var jobBoardDomains = map[string]bool{
	"remoteok.com":       true,
	"remoteok.io":        true,
	"arbeitnow.com":      true,
	"remotive.com":       true,
	"remotive.io":        true,
	"weworkremotely.com": true,
	"linkedin.com":       true,
	"indeed.com":         true,
	"glassdoor.com":      true,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generator builds application emails from a posting and a profile.
type Generator struct{}

// NewGenerator creates an email generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate derives the destination address and renders the application
// email. Address preference: explicit contact email on the posting, then
// careers@ the enriched company website, then careers@ a domain guessed from
// the company name.
func (g *Generator) Generate(posting *models.Posting, profile *models.Profile) Message {
	to, confidence := g.deriveAddress(posting)

	subject := fmt.Sprintf("Application for %s at %s", posting.Title, posting.Company)

	return Message{
		To:         to,
		Subject:    subject,
		Body:       g.renderBody(posting, profile),
		Confidence: confidence,
	}
}

func (g *Generator) deriveAddress(posting *models.Posting) (string, Confidence) {
	if addr := utils.ExtractEmail(posting.ContactEmail); addr != "" {
		return addr, ConfidenceHigh
	}

	if domain := normalizeDomain(posting.CompanyWebsite); domain != "" && !jobBoardDomains[domain] {
		return "careers@" + domain, ConfidenceHigh
	}

	return "careers@" + guessDomain(posting.Company), ConfidenceLow
}

func (g *Generator) renderBody(posting *models.Posting, profile *models.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dear %s Hiring Team,\n\n", posting.Company)
	fmt.Fprintf(&b, "I am writing to apply for the %s position.\n\n", posting.Title)

	if len(profile.Skills) > 0 {
		top := profile.Skills
		if len(top) > 5 {
			top = top[:5]
		}
		fmt.Fprintf(&b, "My relevant skills include: %s.\n\n", strings.Join(top, ", "))
	}

	b.WriteString("My resume is attached. I would welcome the chance to discuss how I can contribute to your team.\n\n")
	b.WriteString("Best regards,\n")
	b.WriteString(profile.Contact.Name)
	if profile.Contact.Email != "" {
		b.WriteString("\n" + profile.Contact.Email)
	}
	if profile.Contact.Phone != "" {
		b.WriteString("\n" + profile.Contact.Phone)
	}

	return b.String()
}

// normalizeDomain reduces a website value ("https://www.acme.io/about") to
// its bare host ("acme.io").
func normalizeDomain(website string) string {
	website = strings.TrimSpace(strings.ToLower(website))
	if website == "" {
		return ""
	}

	host := website
	if strings.Contains(website, "/") || strings.Contains(website, "://") {
		if !strings.Contains(website, "://") {
			website = "https://" + website
		}
		parsed, err := url.Parse(website)
		if err != nil || parsed.Host == "" {
			return ""
		}
		host = parsed.Host
	}

	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

// guessDomain fabricates a plausible domain from a company name. Legal
// suffixes are dropped before squeezing to alphanumerics.
func guessDomain(company string) string {
	name := strings.ToLower(strings.TrimSpace(company))
	for _, suffix := range []string{" inc", " inc.", " llc", " ltd", " ltd.", " gmbh", " corp", " corp.", " co.", " co"} {
		name = strings.TrimSuffix(name, suffix)
	}

	slug := nonAlnum.ReplaceAllString(name, "")
	if slug == "" {
		slug = "company"
	}
	return slug + ".com"
}
